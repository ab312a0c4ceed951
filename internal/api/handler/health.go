package handler

import (
	"net/http"

	"github.com/mcoot/drawguess/internal/api/response"
)

// Counter reports a size; satisfied by the websocket hub and the dictionary
type Counter interface {
	Count() int
}

// CounterFunc adapts a function to Counter
type CounterFunc func() int

// Count implements Counter
func (f CounterFunc) Count() int { return f() }

// HealthHandler reports liveness with a few gauges
type HealthHandler struct {
	rooms       RoomReader
	connections Counter
	words       Counter
}

// NewHealthHandler creates a new health handler. Nil counters report zero.
func NewHealthHandler(rooms RoomReader, connections, words Counter) *HealthHandler {
	return &HealthHandler{rooms: rooms, connections: connections, words: words}
}

// Health handles GET /api/v1/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := response.Health{Status: "ok", Rooms: h.rooms.RoomCount()}
	if h.connections != nil {
		resp.Connections = h.connections.Count()
	}
	if h.words != nil {
		resp.Words = h.words.Count()
	}
	response.JSON(w, http.StatusOK, resp)
}
