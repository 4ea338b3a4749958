package api

import (
	"net/http"

	"github.com/slok/taskflow/internal/relay"
)

type HealthHandler struct {
	queue *relay.Queue
}

func NewHealthHandler(queue *relay.Queue) *HealthHandler {
	return &HealthHandler{queue: queue}
}

type healthResponse struct {
	Status string      `json:"status"`
	Relay  relay.Stats `json:"relay"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Relay: h.queue.Stats()}

	status := http.StatusOK
	if h.queue.Closed() {
		resp.Status = "closed"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
