package storage

import (
	"context"

	"github.com/mcoot/drawguess/internal/model"
)

// Storage defines the interface for data persistence.
// Live room state is never persisted; only the word list and the
// record of finished games are.
type Storage interface {
	// Game history operations
	AppendGameSummary(ctx context.Context, summary *model.GameSummary) error
	GetGameSummaries(ctx context.Context, code model.RoomCode) ([]*model.GameSummary, error)
	DeleteGameSummaries(ctx context.Context, code model.RoomCode) error

	// Dictionary operations
	GetDictionaryWords(ctx context.Context) ([]string, error)
	SaveDictionaryWords(ctx context.Context, words []string) error
}
