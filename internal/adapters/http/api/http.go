// Package api exposes the detector's read-only HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/parakeet/internal/domain/model"
)

const defaultEventsLimit = 50

// EventReader is the read side of the event store.
type EventReader interface {
	List(ctx context.Context, limit int) ([]model.Event, error)
	Last(ctx context.Context) (model.Event, bool, error)
}

// Server wires HTTP routes for the detector API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	eventsHandler *EventsHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps
// the limit accepted by GET /events.
func NewServer(events EventReader, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		eventsHandler: NewEventsHandler(events, maxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events/latest", MetricsMiddleware(s.eventsHandler.HandleLatest, "events_latest"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandleList, "events"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
