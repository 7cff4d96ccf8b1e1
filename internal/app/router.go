package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medvault/medvault/internal/audit"
	"github.com/medvault/medvault/internal/auth"
	"github.com/medvault/medvault/internal/observability"
	"github.com/medvault/medvault/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	AuthHandler    *auth.Handler
	AuthMiddleware auth.Middleware
	AuditHandler   *audit.Handler
	UsersHandler   *users.Handler
	Pool           *pgxpool.Pool
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with platform defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				params.Logger.Warn("healthz database ping", slog.Any("error", err))
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r, params.AuthMiddleware, LoginRateLimit())
	})

	r.Route("/audit", func(r chi.Router) {
		r.Use(params.AuthMiddleware.Authenticate)
		r.Use(params.AuthMiddleware.RequirePermission("View", "AuditLogs"))
		params.AuditHandler.MountRoutes(r)
	})

	r.Route("/users", func(r chi.Router) {
		params.UsersHandler.MountRoutes(r, params.AuthMiddleware)
	})

	return r
}
