package room

import (
	"sync"
	"unicode/utf8"

	"github.com/mcoot/drawguess/internal/dependencies/clock"
	"github.com/mcoot/drawguess/internal/model"
)

// session is a live room plus the timers that drive it.
// Every field is guarded by mu.
type session struct {
	mu      sync.Mutex
	room    *model.Room
	deleted bool

	// Round countdown. roundGen is bumped whenever the countdown is stopped
	// or restarted so a callback already in flight can tell it is stale.
	roundTimer clock.Timer
	roundGen   uint64

	// Grace-window cleanup, with the same generation scheme
	cleanupTimer clock.Timer
	cleanupGen   uint64

	// Members waiting on a canvas snapshot from the current drawer
	snapshotRequests map[model.SessionID]struct{}
}

func newSession(room *model.Room) *session {
	return &session{
		room:             room,
		snapshotRequests: make(map[model.SessionID]struct{}),
	}
}

// cancelCleanup stops a pending cleanup. Returns true if one was pending.
func (s *session) cancelCleanup() bool {
	s.cleanupGen++
	if s.cleanupTimer == nil {
		return false
	}
	s.cleanupTimer.Stop()
	s.cleanupTimer = nil
	return true
}

// emit builds an envelope for the room and hands it to the dispatcher
func (c *Controller) emit(s *session, typ model.EventType, scope model.Scope, recipients []model.SessionID, payload any) {
	c.dispatcher.Dispatch(model.Envelope{
		Type:       typ,
		RoomCode:   s.room.Code,
		Scope:      scope,
		Recipients: recipients,
		Payload:    payload,
		Timestamp:  c.clock.Now(),
	})
}

// toRoom sends to every member
func (c *Controller) toRoom(s *session, typ model.EventType, payload any) {
	c.emit(s, typ, model.ScopeRoom, s.room.MemberIDs(), payload)
}

// toOthers sends to every member except one
func (c *Controller) toOthers(s *session, except model.SessionID, typ model.EventType, payload any) {
	c.emit(s, typ, model.ScopeOthers, s.room.OtherMemberIDs(except), payload)
}

// toOne sends to a single member
func (c *Controller) toOne(s *session, id model.SessionID, typ model.EventType, payload any) {
	c.emit(s, typ, model.ScopeDirect, []model.SessionID{id}, payload)
}

func wordLength(word string) int {
	return utf8.RuneCountInString(word)
}
