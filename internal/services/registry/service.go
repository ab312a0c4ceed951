package registry

import (
	"sync"

	"github.com/mcoot/drawguess/internal/model"
)

// Service is the connection registry: session ID to profile.
// It has no side effects beyond its own map.
type Service struct {
	mu       sync.RWMutex
	profiles map[model.SessionID]model.Profile
}

// New creates a new RegistryService
func New() *Service {
	return &Service{
		profiles: make(map[model.SessionID]model.Profile),
	}
}

// Register stores or replaces the profile for a session
func (s *Service) Register(id model.SessionID, profile model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[id] = profile
}

// Lookup returns the profile for a session
func (s *Service) Lookup(id model.SessionID) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return model.Profile{}, model.ErrSessionNotFound
	}
	return profile, nil
}

// SetRoom records which room a registered session is in.
// Returns ErrSessionNotFound if the session is not registered.
func (s *Service) SetRoom(id model.SessionID, code model.RoomCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[id]
	if !ok {
		return model.ErrSessionNotFound
	}
	profile.RoomCode = code
	s.profiles[id] = profile
	return nil
}

// Unregister removes a session and returns its last profile
func (s *Service) Unregister(id model.SessionID) (model.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[id]
	delete(s.profiles, id)
	return profile, ok
}

// Count returns the number of registered sessions
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// Interface for dependency injection
type ServiceInterface interface {
	Register(id model.SessionID, profile model.Profile)
	Lookup(id model.SessionID) (model.Profile, error)
	SetRoom(id model.SessionID, code model.RoomCode) error
	Unregister(id model.SessionID) (model.Profile, bool)
	Count() int
}

var _ ServiceInterface = (*Service)(nil)
