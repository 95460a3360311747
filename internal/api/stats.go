package api

import (
	"net/http"

	"iterable-forwarder/internal/engine"
	ws "iterable-forwarder/internal/websocket"
)

// StatsHandler reports queue depth and connected dashboard clients.
type StatsHandler struct {
	queue *engine.Queue
	hub   *ws.Hub
}

func NewStatsHandler(queue *engine.Queue, hub *ws.Hub) *StatsHandler {
	return &StatsHandler{queue: queue, hub: hub}
}

type statsResponse struct {
	QueueDepth       int64 `json:"queue_depth"`
	WebsocketClients int   `json:"websocket_clients"`
}

func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	depth, err := h.queue.Depth(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get queue depth")
		return
	}

	respondJSON(w, http.StatusOK, statsResponse{
		QueueDepth:       depth,
		WebsocketClients: h.hub.ClientCount(),
	})
}
