package room

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mcoot/drawguess/internal/model"
)

// Chat handles a chat line, which doubles as a guess while a word is being drawn.
// A first correct guess scores and is not echoed. Once a member has scored for
// the current word a repeat is plain chat. The drawer typing the answer is
// swallowed so it never leaks.
func (c *Controller) Chat(ctx context.Context, id model.SessionID, rawCode, text string) error {
	guess := strings.ToLower(strings.TrimSpace(text))
	if guess == "" {
		return model.ErrMalformedPayload
	}

	return c.withMember(id, rawCode, func(s *session) error {
		r := s.room
		sender := r.GetMember(id).Name

		if r.Phase != model.PhaseDrawing || r.CurrentWord == "" || guess != strings.ToLower(r.CurrentWord) {
			c.toRoom(s, model.EventChatMessage, model.ChatMessagePayload{Sender: sender, Text: text})
			return nil
		}

		if id == r.CurrentDrawerID {
			return nil
		}
		if !r.MarkGuessed(id) {
			c.toRoom(s, model.EventChatMessage, model.ChatMessagePayload{Sender: sender, Text: text})
			return nil
		}

		points := c.scoring.GuessPoints(r.TimeLeft, r.RoundDuration)
		r.AddScore(id, points)
		r.UpdatedAt = c.clock.Now()

		c.toRoom(s, model.EventCorrectGuess, model.CorrectGuessPayload{
			PlayerID: id,
			Sender:   sender,
			Points:   points,
		})
		c.toRoom(s, model.EventScoresUpdate, model.ScoresPayload{Scores: r.ScoresCopy()})

		c.logger.Debug("correct guess",
			slog.String("room_code", string(r.Code)),
			slog.String("session_id", string(id)),
			slog.Int("points", points),
			slog.Int("time_left", r.TimeLeft),
		)
		return nil
	})
}

// RelayStroke forwards a stroke segment verbatim to every other member
func (c *Controller) RelayStroke(ctx context.Context, id model.SessionID, rawCode string, typ model.EventType, payload json.RawMessage) error {
	if !typ.IsStroke() {
		return model.ErrMalformedPayload
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	return c.withMember(id, rawCode, func(s *session) error {
		c.toOthers(s, id, typ, model.StrokePayload(payload))
		return nil
	})
}

// ClearCanvas relays a member's canvas wipe to every other member
func (c *Controller) ClearCanvas(ctx context.Context, id model.SessionID, rawCode string) error {
	return c.withMember(id, rawCode, func(s *session) error {
		c.toOthers(s, id, model.EventClientClearCanvas, model.EmptyPayload{})
		return nil
	})
}

// RequestSnapshot asks the current drawer to send their canvas to the requester
func (c *Controller) RequestSnapshot(ctx context.Context, id model.SessionID, rawCode string) error {
	return c.withMember(id, rawCode, func(s *session) error {
		drawer := s.room.CurrentDrawerID
		if drawer == "" {
			return model.ErrNoDrawer
		}
		if drawer == id {
			return nil
		}
		s.snapshotRequests[id] = struct{}{}
		c.toOne(s, drawer, model.EventRequestCanvasSnapshotToDrawer, model.SnapshotRequestPayload{RequesterID: id})
		return nil
	})
}

// DeliverSnapshot unicasts the drawer's canvas to a member with an outstanding
// request. Each request is answered at most once.
func (c *Controller) DeliverSnapshot(ctx context.Context, id model.SessionID, rawCode string, target model.SessionID, imageData string) error {
	if target == "" || imageData == "" {
		return model.ErrMalformedPayload
	}

	return c.withMember(id, rawCode, func(s *session) error {
		if s.room.CurrentDrawerID != id {
			return model.ErrNotDrawer
		}
		if !s.room.IsMember(target) {
			return model.ErrNotMember
		}
		if _, ok := s.snapshotRequests[target]; !ok {
			return model.ErrSnapshotNotRequested
		}
		delete(s.snapshotRequests, target)
		c.toOne(s, target, model.EventCanvasSnapshot, model.CanvasSnapshotPayload{ImageData: imageData})
		return nil
	})
}
