package agencies

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-dms/meridian-dms/internal/platform/httpx"
	"github.com/meridian-dms/meridian-dms/internal/shared"
)

// Handler exposes agency registry endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers agency routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	r.Get("/{id}/stats", h.stats)
}

func agencyID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	agencies, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list agencies failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"agencies": agencies})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := agencyID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "agency id must be numeric")
		return
	}
	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())
	agency, err := h.service.Create(r.Context(), input, actor.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"agency": agency})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := agencyID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "agency id must be numeric")
		return
	}
	var input UpdateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	agency, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"agency": agency})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := agencyID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "agency id must be numeric")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), id, actor.ID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "agency deactivated"})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	id, err := agencyID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "agency id must be numeric")
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "month"
	}
	stats, err := h.service.Stats(r.Context(), id, period)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
