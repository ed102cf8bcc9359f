package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/algiz/internal/baseline"
	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/monitor"
)

// StatusProvider reports the live monitor state.
type StatusProvider interface {
	Status() monitor.Status
}

// EventSource serves recorded events, newest first.
type EventSource interface {
	Recent(limit int, level models.Level) ([]models.Event, error)
}

// Handler holds API route handlers.
type Handler struct {
	status   StatusProvider
	baseline baseline.Baseline
	events   EventSource
}

// NewHandler creates a new Handler. events may be nil when the event history
// is disabled.
func NewHandler(status StatusProvider, b baseline.Baseline, events EventSource) *Handler {
	return &Handler{status: status, baseline: b, events: events}
}

// BaselineResponse lists the trusted digests in monitoring order.
type BaselineResponse struct {
	Entries     []baseline.Entry `json:"entries"`
	Count       int              `json:"count"`
	Fingerprint string           `json:"fingerprint"`
}

// EventsResponse wraps an event listing.
type EventsResponse struct {
	Events []models.Event `json:"events"`
}

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.status.Status())
}

// Baseline handles GET /api/baseline.
func (h *Handler) Baseline(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, BaselineResponse{
		Entries: h.baseline.Entries(),
		Count:       h.baseline.Len(),
		Fingerprint: h.baseline.Fingerprint(),
	})
}

// Events handles GET /api/events?limit=&level=.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	level, ok := models.ParseLevel(q.Get("level"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown level"))
		return
	}
	h.listEvents(w, r, level)
}

// Alerts handles GET /api/alerts?limit=.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	h.listEvents(w, r, models.LevelAlert)
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request, level models.Level) {
	if h.events == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("event history disabled"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.events.Recent(limit, level)
	if err != nil {
		slog.Error("list events failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, EventsResponse{Events: events})
}
