package dictionary

import (
	"bufio"
	"context"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/mcoot/drawguess/internal/dependencies/random"
	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/storage"
)

// DefaultWords is used when no word list has been configured
var DefaultWords = []string{"apple", "car", "mountain", "river", "pencil", "sun", "tree"}

// Service holds the drawable word list and hands out word choices
type Service struct {
	storage storage.Storage
	random  random.Random

	mu     sync.RWMutex
	words  []string
	loaded bool
}

// New creates a new DictionaryService
func New(storage storage.Storage, random random.Random) *Service {
	return &Service{
		storage: storage,
		random:  random,
	}
}

// LoadFromStorage loads dictionary words from storage
func (s *Service) LoadFromStorage(ctx context.Context) error {
	words, err := s.storage.GetDictionaryWords(ctx)
	if err != nil {
		return err
	}
	return s.loadWords(words)
}

// LoadFromFile loads dictionary words from a file (one word per line, # comments)
func (s *Service) LoadFromFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" && !strings.HasPrefix(word, "#") {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Save to storage for future use
	if err := s.storage.SaveDictionaryWords(ctx, words); err != nil {
		return err
	}

	return s.loadWords(words)
}

// LoadWords directly loads a slice of words (useful for testing)
func (s *Service) LoadWords(words []string) error {
	return s.loadWords(words)
}

func (s *Service) loadWords(words []string) error {
	seen := make(map[string]struct{}, len(words))
	normalized := make([]string, 0, len(words))
	for _, word := range words {
		// Store lowercase so guesses compare case-insensitively
		w := strings.ToLower(strings.TrimSpace(word))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		normalized = append(normalized, w)
	}
	if len(normalized) == 0 {
		return ErrDictionaryNotLoaded
	}

	// Storage backends may return words in any order
	sort.Strings(normalized)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.words = normalized
	s.loaded = true
	return nil
}

// IsLoaded returns whether the dictionary has been loaded
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// WordCount returns the number of words in the dictionary
func (s *Service) WordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// Choices returns n distinct random words. If fewer than n words are
// loaded, all of them are returned in random order.
func (s *Service) Choices(n int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil, ErrDictionaryNotLoaded
	}

	indices := s.random.Sample(len(s.words), n)
	choices := make([]string, 0, len(indices))
	for _, i := range indices {
		choices = append(choices, s.words[i])
	}
	return choices, nil
}

// Interface check
type ServiceInterface interface {
	IsLoaded() bool
	WordCount() int
	Choices(n int) ([]string, error)
	LoadFromStorage(ctx context.Context) error
	LoadFromFile(ctx context.Context, path string) error
	LoadWords(words []string) error
}

var _ ServiceInterface = (*Service)(nil)

// ErrDictionaryNotLoaded is returned when operations are attempted before loading
var ErrDictionaryNotLoaded = model.ErrDictionaryNotLoaded
