package auth

import (
	"context"

	"github.com/medvault/medvault/internal/token"
)

type ctxKey int

const (
	claimsKey ctxKey = iota
	tokenKey
)

// ContextWithClaims stores verified token claims in the context.
func ContextWithClaims(ctx context.Context, claims *token.Claims, raw string) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	return context.WithValue(ctx, tokenKey, raw)
}

// ClaimsFromContext returns the verified claims placed by the middleware.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*token.Claims)
	return claims, ok
}

// TokenFromContext returns the raw bearer token for the request.
func TokenFromContext(ctx context.Context) string {
	raw, _ := ctx.Value(tokenKey).(string)
	return raw
}
