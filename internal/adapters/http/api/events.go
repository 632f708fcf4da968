package api

import (
	"net/http"
	"strconv"

	"github.com/okian/parakeet/internal/domain/model"
)

// EventsHandler serves recorded events.
type EventsHandler struct {
	events   EventReader
	maxLimit int
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(events EventReader, maxLimit int) *EventsHandler {
	if maxLimit < 1 {
		maxLimit = defaultEventsLimit
	}
	return &EventsHandler{events: events, maxLimit: maxLimit}
}

type eventsResponse struct {
	Count  int           `json:"count"`
	Events []model.Event `json:"events"`
}

// HandleList handles GET /events?limit=N, newest event last.
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	n := min(defaultEventsLimit, h.maxLimit)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
	}

	evs, err := h.events.List(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if evs == nil {
		evs = []model.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Count: len(evs), Events: evs})
}

// HandleLatest handles GET /events/latest.
func (h *EventsHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	const op = "api.latest_event"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	e, ok, err := h.events.Last(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, e)
}
