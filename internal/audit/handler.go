package audit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medvault/medvault/internal/platform/httpx"
)

// Handler serves the read-side audit queries.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit query routes. The caller applies the
// ViewAuditLogs guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/actor/{id}", h.handleByActor)
	r.Get("/entity/{type}/{id}", h.handleByEntity)
	r.Get("/system", h.handleSystem)
}

type recordView struct {
	ID          string    `json:"id"`
	ActorID     string    `json:"actor_id"`
	Action      string    `json:"action"`
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id"`
	Description string    `json:"description"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handler) handleByActor(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parseWindow(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	recs := h.service.ByActor(r.Context(), chi.URLParam(r, "id"), from, to)
	httpx.JSON(w, http.StatusOK, toViews(recs))
}

func (h *Handler) handleByEntity(w http.ResponseWriter, r *http.Request) {
	recs := h.service.ByEntity(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id"))
	httpx.JSON(w, http.StatusOK, toViews(recs))
}

func (h *Handler) handleSystem(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parseWindow(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	recs := h.service.System(r.Context(), from, to)
	httpx.JSON(w, http.StatusOK, toViews(recs))
}

func parseWindow(r *http.Request) (from, to time.Time, ok bool) {
	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
	}
	return from, to, true
}

func toViews(recs []Record) []recordView {
	views := make([]recordView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, recordView{
			ID:          rec.ID,
			ActorID:     rec.ActorID,
			Action:      rec.Action,
			EntityType:  rec.EntityType,
			EntityID:    rec.EntityID,
			Description: rec.Description,
			IPAddress:   rec.IPAddress,
			UserAgent:   rec.UserAgent,
			CreatedAt:   rec.CreatedAt,
		})
	}
	return views
}
