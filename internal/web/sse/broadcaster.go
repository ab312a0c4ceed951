package sse

import (
	"log/slog"

	"github.com/mcoot/drawguess/internal/model"
)

// Broadcaster mirrors room-wide events to the room's spectators.
// Unicasts are never mirrored, so word choices and snapshots stay private.
type Broadcaster struct {
	hubManager *HubManager
	logger     *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// Dispatch forwards a room-wide envelope to the room's hub, if anyone is watching
func (b *Broadcaster) Dispatch(env model.Envelope) {
	if !env.Broadcast() {
		return
	}
	hub := b.hubManager.GetHub(env.RoomCode)
	if hub == nil {
		return
	}

	data, err := env.Encode()
	if err != nil {
		b.logger.Error("sse failed to encode event",
			slog.String("room_code", string(env.RoomCode)),
			slog.String("event", string(env.Type)),
			slog.Any("error", err))
		return
	}
	hub.BroadcastEvent(string(env.Type), string(data))
}

// RoomDeleted closes the spectator stream of a reclaimed room
func (b *Broadcaster) RoomDeleted(code model.RoomCode) {
	b.hubManager.RemoveHub(code)
}
