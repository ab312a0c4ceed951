package room

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/drawguess/internal/dependencies/clock"
	"github.com/mcoot/drawguess/internal/dependencies/random"
	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/services/dictionary"
	"github.com/mcoot/drawguess/internal/services/registry"
	"github.com/mcoot/drawguess/internal/services/scoring"
	"github.com/mcoot/drawguess/internal/storage"
)

const (
	// RoomCodeLength is the length of generated room codes
	RoomCodeLength = 4
	// RoomCodeAlphabet is the characters used in room codes (avoid confusing chars)
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	colorAlphabet = "0123456789abcdef"

	// maxCodeAttempts bounds generation of an unused room code
	maxCodeAttempts = 16

	// storageTimeout bounds background history writes
	storageTimeout = 5 * time.Second
)

// Config holds the game rules applied to new rooms
type Config struct {
	RoundSeconds int
	TotalRounds  int
	WordChoices  int
	CleanupGrace time.Duration
}

// DefaultConfig returns the standard game rules
func DefaultConfig() Config {
	return Config{
		RoundSeconds: 60,
		TotalRounds:  3,
		WordChoices:  3,
		CleanupGrace: 60 * time.Second,
	}
}

// Dispatcher delivers outbound envelopes. Dispatch is called while the
// room is locked and must not block or call back into the Controller.
type Dispatcher interface {
	Dispatch(env model.Envelope)
}

// Dispatchers fans an envelope out to several dispatchers in order
type Dispatchers []Dispatcher

// Dispatch implements Dispatcher
func (d Dispatchers) Dispatch(env model.Envelope) {
	for _, dispatcher := range d {
		dispatcher.Dispatch(env)
	}
}

// JoinResult describes the outcome of a join
type JoinResult struct {
	RoomCode model.RoomCode
	IsHost   bool
	Created  bool
}

// Summary is a lightweight description of a live room
type Summary struct {
	Code        model.RoomCode `json:"code"`
	Phase       model.Phase    `json:"phase"`
	Round       int            `json:"round"`
	TotalRounds int            `json:"totalRounds"`
	MemberCount int            `json:"memberCount"`
}

// Controller owns every live room and serialises all mutation per room.
// Rooms are independent: each has its own lock, and the registry-wide lock
// is only held for map lookups.
type Controller struct {
	cfg        Config
	registry   *registry.Service
	dictionary *dictionary.Service
	scoring    *scoring.Service
	storage    storage.Storage
	dispatcher Dispatcher
	clock      clock.Clock
	random     random.Random
	logger     *slog.Logger

	mu    sync.Mutex
	rooms map[model.RoomCode]*session
	hooks []func(model.RoomCode)

	// background history writes
	bg sync.WaitGroup
}

// NewController creates a new RoomController
func NewController(
	cfg Config,
	registry *registry.Service,
	dictionary *dictionary.Service,
	scoring *scoring.Service,
	storage storage.Storage,
	dispatcher Dispatcher,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		cfg:        cfg,
		registry:   registry,
		dictionary: dictionary,
		scoring:    scoring,
		storage:    storage,
		dispatcher: dispatcher,
		clock:      clock,
		random:     random,
		logger:     logger.With(slog.String("component", "room")),
		rooms:      make(map[model.RoomCode]*session),
	}
}

// OnRoomDeleted registers a callback invoked after a room is reclaimed
func (c *Controller) OnRoomDeleted(fn func(model.RoomCode)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// JoinRoom adds a session to a room, creating the room if needed.
// An empty raw code creates a room under a freshly generated code.
// Joining a room the session is already in is idempotent.
func (c *Controller) JoinRoom(ctx context.Context, id model.SessionID, name, color, rawCode string) (*JoinResult, error) {
	if id == "" || name == "" {
		return nil, model.ErrMalformedPayload
	}
	if color == "" {
		color = "#" + c.random.String(6, colorAlphabet)
	}

	var code model.RoomCode
	var err error
	if rawCode == "" {
		code, err = c.generateCode()
	} else {
		code, err = model.CanonicalRoomCode(rawCode)
	}
	if err != nil {
		return nil, err
	}

	// A session is in at most one room
	if prev, err := c.registry.Lookup(id); err == nil && prev.InRoom() && prev.RoomCode != code {
		c.leave(id, prev.RoomCode)
	}
	c.registry.Register(id, model.Profile{Name: name, Color: color, RoomCode: code})

	s, created := c.acquire(code)
	defer s.mu.Unlock()

	// Rejoin wins against a pending cleanup
	if s.cancelCleanup() {
		c.logger.Info("room cleanup cancelled",
			slog.String("room_code", string(code)),
			slog.String("session_id", string(id)),
		)
	}

	r := s.room
	member := model.Member{ID: id, Name: name, Color: color}
	if existing := r.GetMember(id); existing != nil {
		*existing = member
	} else {
		r.AddMember(member)
	}
	r.UpdatedAt = c.clock.Now()
	isHost := len(r.Members) == 1

	c.toOne(s, id, model.EventJoinedRoomSuccess, model.JoinedRoomSuccessPayload{
		IsHost:    isHost,
		SessionID: id,
		RoomCode:  code,
	})

	// A room emptied mid-game resumes with the first joiner drawing
	resumed := r.Phase.RoundActive() && r.CurrentDrawerID == ""
	if resumed {
		c.prepareDrawer(s, id)
	}
	c.toRoom(s, model.EventRoomPlayers, r.Players())
	c.catchUp(s, id)
	if resumed {
		c.startRoundTimer(s)
	}

	c.logger.Info("session joined room",
		slog.String("room_code", string(code)),
		slog.String("session_id", string(id)),
		slog.Int("member_count", len(r.Members)),
		slog.Bool("created", created),
	)

	return &JoinResult{RoomCode: code, IsHost: isHost, Created: created}, nil
}

// catchUp sends a session the private state it needs to follow a round in progress
func (c *Controller) catchUp(s *session, id model.SessionID) {
	r := s.room
	if !r.Phase.RoundActive() {
		return
	}

	c.toOne(s, id, model.EventGameStarted, model.GameStartedPayload{Round: r.Round, TotalRounds: r.TotalRounds})
	c.toOne(s, id, model.EventUpdateTimer, model.UpdateTimerPayload{TimeLeft: r.TimeLeft})

	switch {
	case id == r.CurrentDrawerID && r.Phase == model.PhaseChoosingWord:
		c.toOne(s, id, model.EventChooseWord, append([]string(nil), r.WordChoices...))
	case id == r.CurrentDrawerID && r.Phase == model.PhaseDrawing:
		c.toOne(s, id, model.EventStartDrawing, model.EmptyPayload{})
	case r.Phase == model.PhaseDrawing:
		c.toOne(s, id, model.EventSetWordBlanks, model.SetWordBlanksPayload{Length: wordLength(r.CurrentWord)})
	}
}

// LeaveRoom removes a session from its current room but keeps it registered
func (c *Controller) LeaveRoom(ctx context.Context, id model.SessionID) error {
	profile, err := c.registry.Lookup(id)
	if err != nil {
		return err
	}
	if !profile.InRoom() {
		return model.ErrNotMember
	}
	c.leave(id, profile.RoomCode)
	return c.registry.SetRoom(id, "")
}

// Disconnect unregisters a session and removes it from its room
func (c *Controller) Disconnect(ctx context.Context, id model.SessionID) {
	profile, ok := c.registry.Unregister(id)
	if !ok || !profile.InRoom() {
		return
	}
	c.leave(id, profile.RoomCode)
}

func (c *Controller) leave(id model.SessionID, code model.RoomCode) {
	s := c.lookup(code)
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return
	}

	r := s.room
	wasDrawer := r.CurrentDrawerID == id
	if !r.RemoveMember(id) {
		return
	}
	delete(s.snapshotRequests, id)
	r.UpdatedAt = c.clock.Now()

	c.logger.Info("session left room",
		slog.String("room_code", string(code)),
		slog.String("session_id", string(id)),
		slog.Int("member_count", len(r.Members)),
	)

	if r.IsEmpty() {
		c.stopRoundTimer(s)
		c.scheduleCleanup(s)
		return
	}

	if wasDrawer && r.Phase.RoundActive() {
		c.reassignDrawer(s, r.Members[0].ID)
		return
	}
	c.toRoom(s, model.EventRoomPlayers, r.Players())
}

// reassignDrawer hands the current round to a new drawer without touching the countdown
func (c *Controller) reassignDrawer(s *session, drawer model.SessionID) {
	r := s.room
	c.prepareDrawer(s, drawer)

	c.toRoom(s, model.EventRoomPlayers, r.Players())
	c.toOne(s, drawer, model.EventChooseWord, append([]string(nil), r.WordChoices...))

	c.logger.Info("drawer reassigned",
		slog.String("room_code", string(r.Code)),
		slog.String("drawer_id", string(drawer)),
		slog.Int("round", r.Round),
	)
}

// GetRoom returns a snapshot of a live room
func (c *Controller) GetRoom(ctx context.Context, rawCode string) (*model.Room, error) {
	code, err := model.CanonicalRoomCode(rawCode)
	if err != nil {
		return nil, err
	}
	s := c.lookup(code)
	if s == nil {
		return nil, model.ErrRoomNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return nil, model.ErrRoomNotFound
	}
	return s.room.Clone(), nil
}

// ListRooms returns summaries of every live room ordered by code
func (c *Controller) ListRooms(ctx context.Context) []Summary {
	c.mu.Lock()
	sessions := make([]*session, 0, len(c.rooms))
	for _, s := range c.rooms {
		sessions = append(sessions, s)
	}
	c.mu.Unlock()

	summaries := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		if !s.deleted {
			summaries = append(summaries, Summary{
				Code:        s.room.Code,
				Phase:       s.room.Phase,
				Round:       s.room.Round,
				TotalRounds: s.room.TotalRounds,
				MemberCount: len(s.room.Members),
			})
		}
		s.mu.Unlock()
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Code < summaries[j].Code
	})
	return summaries
}

// GetHistory returns the finished games recorded for a room code
func (c *Controller) GetHistory(ctx context.Context, rawCode string) ([]*model.GameSummary, error) {
	code, err := model.CanonicalRoomCode(rawCode)
	if err != nil {
		return nil, err
	}
	return c.storage.GetGameSummaries(ctx, code)
}

// RoomCount returns the number of live rooms
func (c *Controller) RoomCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rooms)
}

// Shutdown stops every timer and waits for background writes
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	sessions := make([]*session, 0, len(c.rooms))
	for _, s := range c.rooms {
		sessions = append(sessions, s)
	}
	c.mu.Unlock()

	for _, s := range sessions {
		s.mu.Lock()
		c.stopRoundTimer(s)
		s.cancelCleanup()
		s.mu.Unlock()
	}

	done := make(chan struct{})
	go func() {
		c.bg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lookup returns the live session for a code, or nil
func (c *Controller) lookup(code model.RoomCode) *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms[code]
}

// acquire returns the locked session for a code, creating it if absent.
// A session already reclaimed by cleanup is replaced.
func (c *Controller) acquire(code model.RoomCode) (*session, bool) {
	for {
		created := false
		c.mu.Lock()
		s, ok := c.rooms[code]
		if !ok {
			s = newSession(model.NewRoom(code, c.cfg.TotalRounds, c.cfg.RoundSeconds, c.clock.Now()))
			c.rooms[code] = s
			created = true
		}
		c.mu.Unlock()

		s.mu.Lock()
		if !s.deleted {
			if created {
				c.logger.Info("room created", slog.String("room_code", string(code)))
			}
			return s, created
		}
		s.mu.Unlock()

		c.mu.Lock()
		if c.rooms[code] == s {
			delete(c.rooms, code)
		}
		c.mu.Unlock()
	}
}

// generateCode picks an unused room code
func (c *Controller) generateCode() (model.RoomCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := model.CanonicalRoomCode(c.random.String(RoomCodeLength, RoomCodeAlphabet))
		if err != nil {
			continue
		}
		if _, exists := c.rooms[code]; !exists {
			return code, nil
		}
	}
	return "", model.ErrInvalidRoomCode
}

// withMember runs fn with the sender's room locked, after checking the
// sender is a member. A non-empty raw code must name the sender's room.
func (c *Controller) withMember(id model.SessionID, rawCode string, fn func(s *session) error) error {
	profile, err := c.registry.Lookup(id)
	if err != nil {
		return err
	}
	if !profile.InRoom() {
		return model.ErrNotMember
	}
	if rawCode != "" {
		code, err := model.CanonicalRoomCode(rawCode)
		if err != nil {
			return err
		}
		if code != profile.RoomCode {
			return model.ErrNotMember
		}
	}

	s := c.lookup(profile.RoomCode)
	if s == nil {
		return model.ErrRoomNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return model.ErrRoomNotFound
	}
	if !s.room.IsMember(id) {
		return model.ErrNotMember
	}
	return fn(s)
}
