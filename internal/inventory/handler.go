package inventory

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-dms/meridian-dms/internal/platform/httpx"
	"github.com/meridian-dms/meridian-dms/internal/shared"
)

// Handler exposes inventory movement endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers the global movement listing.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/movements", h.listAll)
}

// MountAgencyRoutes registers the per-agency movement routes under /agencies.
func (h *Handler) MountAgencyRoutes(r chi.Router) {
	r.Post("/{id}/inventory/incoming", h.recordIncoming)
	r.Post("/{id}/inventory/outgoing", h.recordOutgoing)
	r.Post("/{id}/inventory/adjustment", h.recordAdjustment)
	r.Get("/{id}/inventory/movements", h.listForAgency)
}

func parseFilter(r *http.Request) ListFilter {
	q := r.URL.Query()
	filter := ListFilter{Type: q.Get("type")}
	filter.AgencyID, _ = strconv.ParseInt(q.Get("agency_id"), 10, 64)
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	if from := q.Get("from"); from != "" {
		filter.From, _ = time.Parse(time.RFC3339, from)
	}
	if to := q.Get("to"); to != "" {
		filter.To, _ = time.Parse(time.RFC3339, to)
	}
	return filter
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request, post func(agencyID int64, input RecordInput, actorID int64) (*Movement, error)) {
	agencyID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "agency id must be numeric")
		return
	}
	var input RecordInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())
	movement, err := post(agencyID, input, actor.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"movement": movement})
}

func (h *Handler) recordIncoming(w http.ResponseWriter, r *http.Request) {
	h.record(w, r, func(agencyID int64, input RecordInput, actorID int64) (*Movement, error) {
		return h.service.RecordIncoming(r.Context(), agencyID, input, actorID)
	})
}

func (h *Handler) recordOutgoing(w http.ResponseWriter, r *http.Request) {
	h.record(w, r, func(agencyID int64, input RecordInput, actorID int64) (*Movement, error) {
		return h.service.RecordOutgoing(r.Context(), agencyID, input, actorID)
	})
}

func (h *Handler) recordAdjustment(w http.ResponseWriter, r *http.Request) {
	agencyID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "agency id must be numeric")
		return
	}
	var input AdjustInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())
	movement, err := h.service.RecordAdjustment(r.Context(), agencyID, input, actor.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"movement": movement})
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	movements, pagination, err := h.service.List(r.Context(), parseFilter(r))
	if err != nil {
		h.logger.Error("list movements failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements, "pagination": pagination})
}

func (h *Handler) listForAgency(w http.ResponseWriter, r *http.Request) {
	agencyID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "agency id must be numeric")
		return
	}
	filter := parseFilter(r)
	filter.AgencyID = agencyID
	movements, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list agency movements failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements, "pagination": pagination})
}
