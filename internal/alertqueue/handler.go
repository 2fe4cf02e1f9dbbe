package alertqueue

import (
	"encoding/json"
	"net/http"

	"github.com/edlume/alertflow/internal/pkg/ctxlog"
	"github.com/edlume/alertflow/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler exposes the producer API over HTTP so other services can enqueue
// alerts. Admission rejections are results, not HTTP errors: the endpoint
// answers 202 either way, mirroring the fire-and-forget contract of Enqueue.
type Handler struct {
	queue     *Queue
	validator *validator.Validate
}

// NewHandler creates a new alert queue handler.
func NewHandler(queue *Queue) *Handler {
	return &Handler{
		queue:     queue,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the alert queue.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Post("/", h.EnqueueAlert)
		r.Get("/stats", h.GetStats)
	})
}

// EnqueueAlertRequest represents the request body for enqueuing an alert.
type EnqueueAlertRequest struct {
	Message     string `json:"message" validate:"required,min=1,max=4096"`
	Destination string `json:"destination" validate:"required,min=1,max=255"`
	Service     string `json:"service" validate:"required,min=1,max=255"`
	Priority    string `json:"priority" validate:"omitempty,oneof=critical high medium low"`
}

// EnqueueAlertResponse mirrors EnqueueResult for JSON clients.
type EnqueueAlertResponse struct {
	Queued      bool   `json:"queued"`
	Fingerprint string `json:"fingerprint"`
	Reason      string `json:"reason,omitempty"`
}

// EnqueueAlert handles POST /alerts.
func (h *Handler) EnqueueAlert(w http.ResponseWriter, r *http.Request) {
	var req EnqueueAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	result := h.queue.Enqueue(req.Message, req.Destination, req.Service, Priority(req.Priority))

	logger := ctxlog.FromContext(r.Context())
	if result.Queued {
		logger.Debug("alert admitted", "service", req.Service, "fingerprint", result.Fingerprint)
	} else {
		logger.Debug("alert rejected",
			"service", req.Service,
			"fingerprint", result.Fingerprint,
			"reason", result.Reason,
		)
	}

	httputil.JSON(w, http.StatusAccepted, EnqueueAlertResponse{
		Queued:      result.Queued,
		Fingerprint: result.Fingerprint,
		Reason:      string(result.Reason),
	})
}

// GetStats handles GET /alerts/stats.
func (h *Handler) GetStats(w http.ResponseWriter, _ *http.Request) {
	httputil.Success(w, http.StatusOK, h.queue.Stats())
}
