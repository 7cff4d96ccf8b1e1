package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/medvault/medvault/internal/platform/httpx"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router. loginMW wraps
// only the login endpoint, typically with a tighter rate limit.
func (h *Handler) MountRoutes(r chi.Router, mw Middleware, loginMW ...func(http.Handler) http.Handler) {
	r.With(loginMW...).Post("/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate)
		r.Post("/logout", h.handleLogout)
		r.Post("/password", h.handleChangePassword)
		r.Get("/me", h.handleMe)
	})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	tok := h.service.Authenticate(r.Context(), req.Username, req.Password, clientIP(r), r.UserAgent())
	if tok == "" {
		// One denial signal for every failure mode.
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{Token: tok})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !h.service.Logout(r.Context(), TokenFromContext(r.Context())) {
		httpx.Problem(w, http.StatusInternalServerError, "Logout Failed", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if !h.service.ChangePassword(r.Context(), claims.Subject, req.CurrentPassword, req.NewPassword) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type accountResponse struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Role        string   `json:"role"`
	Institution string   `json:"institution"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	account := h.service.ResolveIdentity(r.Context(), TokenFromContext(r.Context()))
	if account == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, accountResponse{
		ID:          account.ID,
		Username:    account.Username,
		Email:       account.Email,
		FirstName:   account.FirstName,
		LastName:    account.LastName,
		Role:        string(account.Role),
		Institution: account.Institution,
		Permissions: account.Role.Permissions(),
	})
}

func clientIP(r *http.Request) string {
	return r.RemoteAddr
}
