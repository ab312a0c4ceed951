package room

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/services/dictionary"
)

// tickInterval is the countdown resolution
const tickInterval = time.Second

// StartOptions customise a new game
type StartOptions struct {
	TotalRounds int  // Zero keeps the room's current setting
	ResetScores bool // Zero every current member's score first
}

// StartGame begins a new game from the lobby or after a finished game
func (c *Controller) StartGame(ctx context.Context, id model.SessionID, rawCode string, opts StartOptions) error {
	return c.withMember(id, rawCode, func(s *session) error {
		r := s.room
		if r.Phase != model.PhaseLobby && r.Phase != model.PhaseGameOver {
			return model.ErrGameInProgress
		}

		if opts.TotalRounds > 0 {
			r.TotalRounds = opts.TotalRounds
		}
		if opts.ResetScores {
			r.ResetScores()
		}
		r.Round = 0
		r.CurrentDrawerID = ""

		c.logger.Info("game started",
			slog.String("room_code", string(r.Code)),
			slog.String("started_by", string(id)),
			slog.Int("total_rounds", r.TotalRounds),
			slog.Int("member_count", len(r.Members)),
		)

		c.beginRound(s)
		return nil
	})
}

// beginRound moves the room into the next round's ChoosingWord phase.
// It serves both the initial start and every timeout-driven transition.
func (c *Controller) beginRound(s *session) {
	r := s.room

	var drawer model.SessionID
	if r.Round == 0 {
		drawer = r.Members[0].ID
	} else {
		drawer = r.NextDrawer()
	}
	r.Round++
	r.TimeLeft = r.RoundDuration
	r.UpdatedAt = c.clock.Now()
	c.prepareDrawer(s, drawer)

	if r.Round == 1 {
		c.toRoom(s, model.EventGameStarted, model.GameStartedPayload{
			Round:       r.Round,
			TotalRounds: r.TotalRounds,
		})
	} else {
		c.toRoom(s, model.EventRoundStarted, model.RoundStartedPayload{
			Round:       r.Round,
			TotalRounds: r.TotalRounds,
			DrawerID:    drawer,
		})
	}
	c.toRoom(s, model.EventRoomPlayers, r.Players())
	c.toOne(s, drawer, model.EventChooseWord, append([]string(nil), r.WordChoices...))
	c.toRoom(s, model.EventUpdateTimer, model.UpdateTimerPayload{TimeLeft: r.TimeLeft})

	c.startRoundTimer(s)
}

// prepareDrawer makes drawer the current drawer with fresh word choices
func (c *Controller) prepareDrawer(s *session, drawer model.SessionID) {
	r := s.room
	r.CurrentDrawerID = drawer
	r.CurrentWord = ""
	r.ResetGuessed()
	clear(s.snapshotRequests)
	r.Phase = model.PhaseChoosingWord
	r.WordChoices = c.drawChoices(r.Code)
}

func (c *Controller) drawChoices(code model.RoomCode) []string {
	choices, err := c.dictionary.Choices(c.cfg.WordChoices)
	if err != nil {
		c.logger.Error("failed to draw word choices",
			slog.String("room_code", string(code)),
			slog.String("error", err.Error()),
		)
		n := min(c.cfg.WordChoices, len(dictionary.DefaultWords))
		return append([]string(nil), dictionary.DefaultWords[:n]...)
	}
	return choices
}

// SelectWord records the drawer's pick and opens guessing
func (c *Controller) SelectWord(ctx context.Context, id model.SessionID, rawCode, word string) error {
	return c.withMember(id, rawCode, func(s *session) error {
		r := s.room
		if r.Phase != model.PhaseChoosingWord {
			return model.ErrNotChoosing
		}
		if r.CurrentDrawerID != id {
			return model.ErrNotDrawer
		}

		picked := ""
		for _, choice := range r.WordChoices {
			if strings.EqualFold(choice, strings.TrimSpace(word)) {
				picked = choice
				break
			}
		}
		if picked == "" {
			return model.ErrInvalidWord
		}

		r.CurrentWord = picked
		r.WordChoices = nil
		r.ResetGuessed()
		r.Phase = model.PhaseDrawing
		r.UpdatedAt = c.clock.Now()

		c.toOthers(s, id, model.EventSetWordBlanks, model.SetWordBlanksPayload{Length: wordLength(picked)})
		c.toOne(s, id, model.EventStartDrawing, model.EmptyPayload{})

		c.logger.Debug("word selected",
			slog.String("room_code", string(r.Code)),
			slog.Int("round", r.Round),
		)
		return nil
	})
}

// startRoundTimer (re)starts the repeating countdown tick
func (c *Controller) startRoundTimer(s *session) {
	c.stopRoundTimer(s)
	gen := s.roundGen
	s.roundTimer = c.clock.AfterFunc(tickInterval, func() { c.tick(s, gen) })
}

// stopRoundTimer cancels the countdown. Safe to call when none is running.
func (c *Controller) stopRoundTimer(s *session) {
	s.roundGen++
	if s.roundTimer != nil {
		s.roundTimer.Stop()
		s.roundTimer = nil
	}
}

func (c *Controller) tick(s *session, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stale: the room was deleted or the countdown was restarted or stopped
	if s.deleted || gen != s.roundGen {
		return
	}
	s.roundTimer = nil

	r := s.room
	r.TimeLeft = max(0, r.TimeLeft-1)
	c.toRoom(s, model.EventUpdateTimer, model.UpdateTimerPayload{TimeLeft: r.TimeLeft})

	if r.TimeLeft > 0 {
		s.roundTimer = c.clock.AfterFunc(tickInterval, func() { c.tick(s, gen) })
		return
	}
	c.endRound(s)
}

// endRound runs the timeout transition out of a round
func (c *Controller) endRound(s *session) {
	c.stopRoundTimer(s)

	r := s.room
	r.Phase = model.PhaseRoundEnd
	r.CurrentWord = ""
	r.WordChoices = nil
	r.UpdatedAt = c.clock.Now()

	c.toRoom(s, model.EventRoundEnded, model.RoundEndedPayload{Round: r.Round})
	c.toRoom(s, model.EventClearCanvas, model.EmptyPayload{})

	c.logger.Info("round ended",
		slog.String("room_code", string(r.Code)),
		slog.Int("round", r.Round),
		slog.Int("total_rounds", r.TotalRounds),
	)

	if r.Round < r.TotalRounds {
		c.beginRound(s)
		return
	}
	c.finishGame(s)
}

// finishGame broadcasts the final scoreboard and records the game
func (c *Controller) finishGame(s *session) {
	r := s.room
	r.Phase = model.PhaseGameOver
	r.CurrentDrawerID = ""
	r.ResetGuessed()
	r.GamesPlayed++

	scores := r.ScoresCopy()
	c.toRoom(s, model.EventGameOver, model.ScoresPayload{Scores: scores})
	c.toRoom(s, model.EventRoomPlayers, r.Players())

	summary := &model.GameSummary{
		RoomCode:    r.Code,
		GameNumber:  r.GamesPlayed,
		TotalRounds: r.TotalRounds,
		FinalScores: scores,
		Winner:      c.scoring.DetermineWinner(scores),
		CompletedAt: c.clock.Now(),
	}

	c.logger.Info("game over",
		slog.String("room_code", string(r.Code)),
		slog.Int("game_number", summary.GameNumber),
		slog.String("winner", string(summary.Winner)),
	)

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()
		if err := c.storage.AppendGameSummary(ctx, summary); err != nil {
			c.logger.Error("failed to save game summary",
				slog.String("room_code", string(summary.RoomCode)),
				slog.String("error", err.Error()),
			)
		}
	}()
}
