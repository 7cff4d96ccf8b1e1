package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/medvault/medvault/internal/platform/httpx"
)

// Middleware guards routes with bearer-token authentication and permission
// checks.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Authenticate rejects requests without a valid, registered bearer token and
// stores the decoded claims in the request context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" || !m.Service.Validate(r.Context(), raw) {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		claims, err := m.Service.tokens.Verify(raw)
		if err != nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims, raw)))
	})
}

// RequirePermission gates a route behind the "{Action}{Resource}" permission
// decoded from the token claims. Run after Authenticate.
func (m Middleware) RequirePermission(action, resource string) func(http.Handler) http.Handler {
	required := action + resource
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !HasPermission(claims.Permissions, required) {
				if m.Logger != nil {
					m.Logger.Warn("permission denied",
						slog.String("account_id", claims.Subject),
						slog.String("permission", required))
				}
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
