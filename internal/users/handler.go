package users

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/medvault/medvault/internal/auth"
	"github.com/medvault/medvault/internal/platform/httpx"
)

// Handler exposes account administration over HTTP.
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
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers user administration routes. Both routes require the
// ManageUsers permission.
func (h *Handler) MountRoutes(r chi.Router, mw auth.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate)
		r.Use(mw.RequirePermission("Manage", "Users"))
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
	})
}

type accountView struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Role          string    `json:"role"`
	Institution   string    `json:"institution"`
	LicenseNumber string    `json:"license_number"`
	IsActive      bool      `json:"is_active"`
	LastLoginAt   time.Time `json:"last_login_at"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	views := make([]accountView, 0, len(accounts))
	for _, acct := range accounts {
		views = append(views, toView(acct))
	}
	httpx.JSON(w, http.StatusOK, views)
}

type createRequest struct {
	Username      string `json:"username" validate:"required,min=3"`
	Email         string `json:"email" validate:"required,email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Password      string `json:"password" validate:"required,min=8"`
	Role          string `json:"role" validate:"required"`
	Institution   string `json:"institution"`
	LicenseNumber string `json:"license_number"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	account, err := h.service.Create(r.Context(), claims.Subject, NewAccount{
		Username:      req.Username,
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Password:      req.Password,
		Role:          auth.Role(req.Role),
		Institution:   req.Institution,
		LicenseNumber: req.LicenseNumber,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRole):
			httpx.RespondError(w, httpx.ErrValidation)
		case errors.Is(err, ErrDuplicate):
			httpx.Problem(w, http.StatusConflict, "Duplicate", "username or email already taken")
		default:
			h.logger.Error("create account", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, toView(*account))
}

func toView(acct auth.Account) accountView {
	return accountView{
		ID:            acct.ID,
		Username:      acct.Username,
		Email:         acct.Email,
		FirstName:     acct.FirstName,
		LastName:      acct.LastName,
		Role:          string(acct.Role),
		Institution:   acct.Institution,
		LicenseNumber: acct.LicenseNumber,
		IsActive:      acct.IsActive,
		LastLoginAt:   acct.LastLoginAt,
	}
}
