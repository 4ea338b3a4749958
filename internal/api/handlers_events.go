package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
	"github.com/slok/taskflow/internal/relay"
)

type EventsHandler struct {
	queue    *relay.Queue
	interval time.Duration
	logger   log.Logger
}

func NewEventsHandler(queue *relay.Queue, interval time.Duration, logger log.Logger) *EventsHandler {
	return &EventsHandler{queue: queue, interval: interval, logger: logger}
}

type broadcastRequest struct {
	ProjectID string          `json:"projectId"`
	Event     json.RawMessage `json:"event"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// Broadcast handles POST /api/events/broadcast
func (h *EventsHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.ProjectID == "" || len(req.Event) == 0 || string(req.Event) == "null" {
		writeError(w, http.StatusBadRequest, "Missing data")
		return
	}

	err := h.queue.Publish(req.ProjectID, req.Event)
	switch {
	case errors.Is(err, model.ErrNotValid):
		writeError(w, http.StatusBadRequest, "Invalid event")
		return
	case errors.Is(err, model.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "Relay closed")
		return
	case err != nil:
		h.logger.WithCtxValues(r.Context()).Errorf("could not publish event: %s", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// Subscribe handles GET /api/events
func (h *EventsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		http.Error(w, "Missing projectId", http.StatusBadRequest)
		return
	}

	logger := h.logger.WithCtxValues(r.Context()).WithValues(log.Kv{"project": projectID})
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(f model.Frame) error {
		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("could not marshal frame: %w", err)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	logger.Debugf("Subscriber connected")
	err := h.queue.Stream(r.Context(), projectID, h.interval, emit)
	switch {
	case err == nil, errors.Is(err, model.ErrClosed):
		logger.Debugf("Subscriber disconnected")
	default:
		logger.Warningf("Subscription stream ended: %s", err)
	}
}
