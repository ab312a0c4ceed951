package ws

import (
	"log/slog"
	"sync"

	"github.com/mcoot/drawguess/internal/model"
)

// Hub maps live sessions to their websocket clients and delivers
// envelopes resolved by the room controller.
type Hub struct {
	mu      sync.RWMutex
	clients map[model.SessionID]*Client
	logger  *slog.Logger
}

// NewHub creates an empty Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[model.SessionID]*Client),
		logger:  logger.With(slog.String("component", "ws-hub")),
	}
}

// Register adds a client under its session id
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("websocket client registered",
		slog.String("session_id", string(c.id)),
		slog.Int("total_clients", count))
}

// Unregister removes a client if it is still the one registered for its session
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("websocket client unregistered",
		slog.String("session_id", string(c.id)),
		slog.Int("total_clients", count))
}

// Get returns the client for a session, or nil
func (h *Hub) Get(id model.SessionID) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[id]
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dispatch delivers an envelope to each recipient without blocking.
// Recipients with no live connection are skipped.
func (h *Hub) Dispatch(env model.Envelope) {
	data, err := env.Encode()
	if err != nil {
		h.logger.Error("websocket failed to encode event",
			slog.String("room_code", string(env.RoomCode)),
			slog.String("event", string(env.Type)),
			slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range env.Recipients {
		if c, ok := h.clients[id]; ok {
			c.Send(data)
		}
	}
}

// CloseAll closes every connection; used on shutdown
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}
