package room

import (
	"context"
	"log/slog"

	"github.com/mcoot/drawguess/internal/model"
)

// scheduleCleanup starts the grace window for an empty room
func (c *Controller) scheduleCleanup(s *session) {
	s.cancelCleanup()
	gen := s.cleanupGen
	s.cleanupTimer = c.clock.AfterFunc(c.cfg.CleanupGrace, func() { c.cleanup(s, gen) })

	c.logger.Info("room cleanup scheduled",
		slog.String("room_code", string(s.room.Code)),
		slog.Duration("grace", c.cfg.CleanupGrace),
	)
}

// cleanup deletes a room that stayed empty for the whole grace window
func (c *Controller) cleanup(s *session, gen uint64) {
	s.mu.Lock()
	if s.deleted || gen != s.cleanupGen || !s.room.IsEmpty() {
		s.mu.Unlock()
		return
	}
	s.deleted = true
	s.cleanupTimer = nil
	c.stopRoundTimer(s)
	code := s.room.Code
	s.mu.Unlock()

	c.mu.Lock()
	if c.rooms[code] == s {
		delete(c.rooms, code)
	}
	hooks := append([]func(model.RoomCode){}, c.hooks...)
	c.mu.Unlock()

	for _, hook := range hooks {
		hook(code)
	}

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()
		if err := c.storage.DeleteGameSummaries(ctx, code); err != nil {
			c.logger.Error("failed to delete game history",
				slog.String("room_code", string(code)),
				slog.String("error", err.Error()),
			)
		}
	}()

	c.logger.Info("room deleted", slog.String("room_code", string(code)))
}
