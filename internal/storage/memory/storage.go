package memory

import (
	"context"
	"sync"

	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	history         map[model.RoomCode][]*model.GameSummary
	dictionaryWords []string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		history: make(map[model.RoomCode][]*model.GameSummary),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Game history operations

func (s *Storage) AppendGameSummary(ctx context.Context, summary *model.GameSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[summary.RoomCode] = append(s.history[summary.RoomCode], copySummary(summary))
	return nil
}

func (s *Storage) GetGameSummaries(ctx context.Context, code model.RoomCode) ([]*model.GameSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summaries := make([]*model.GameSummary, 0, len(s.history[code]))
	for _, summary := range s.history[code] {
		summaries = append(summaries, copySummary(summary))
	}
	return summaries, nil
}

func (s *Storage) DeleteGameSummaries(ctx context.Context, code model.RoomCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, code)
	return nil
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dictionaryWords == nil {
		return nil, model.ErrDictionaryNotLoaded
	}
	return append([]string(nil), s.dictionaryWords...), nil
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dictionaryWords = append(make([]string, 0, len(words)), words...)
	return nil
}

func copySummary(summary *model.GameSummary) *model.GameSummary {
	c := *summary
	c.FinalScores = make(map[model.SessionID]int, len(summary.FinalScores))
	for id, score := range summary.FinalScores {
		c.FinalScores[id] = score
	}
	return &c
}
