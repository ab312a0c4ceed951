package scoring

import (
	"math"
	"sort"

	"github.com/mcoot/drawguess/internal/model"
)

const (
	// MinPoints is awarded for a correct guess at the last moment
	MinPoints = 100
	// MaxPoints is awarded for an instant correct guess
	MaxPoints = 1000
)

// Points returns the award for a correct guess with timeLeft seconds remaining
// out of a round of roundDuration seconds. The result is always within
// [MinPoints, MaxPoints] and non-decreasing in timeLeft.
func Points(timeLeft, roundDuration int) int {
	if roundDuration <= 0 {
		return MinPoints
	}
	timeLeft = min(max(0, timeLeft), roundDuration)

	pct := float64(timeLeft) / float64(roundDuration)
	raw := int(math.Round(pct * MaxPoints))
	return max(MinPoints, raw)
}

// Service provides scoring functionality for guesses and finished games
type Service struct{}

// New creates a new ScoringService
func New() *Service {
	return &Service{}
}

// GuessPoints scores a correct guess
func (s *Service) GuessPoints(timeLeft, roundDuration int) int {
	return Points(timeLeft, roundDuration)
}

// Ranking is a session's position on the final scoreboard
type Ranking struct {
	SessionID model.SessionID
	Score     int
}

// Rank returns scores sorted by score descending, ties broken by session ID
func (s *Service) Rank(scores map[model.SessionID]int) []Ranking {
	ranked := make([]Ranking, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, Ranking{SessionID: id, Score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].SessionID < ranked[j].SessionID
	})

	return ranked
}

// DetermineWinner returns the winner's SessionID, or empty string if tie
// or nobody scored
func (s *Service) DetermineWinner(scores map[model.SessionID]int) model.SessionID {
	ranked := s.Rank(scores)
	if len(ranked) == 0 || ranked[0].Score == 0 {
		return ""
	}

	if len(ranked) > 1 && ranked[1].Score == ranked[0].Score {
		return "" // Tie
	}

	return ranked[0].SessionID
}

// Interface for dependency injection
type ServiceInterface interface {
	GuessPoints(timeLeft, roundDuration int) int
	Rank(scores map[model.SessionID]int) []Ranking
	DetermineWinner(scores map[model.SessionID]int) model.SessionID
}

var _ ServiceInterface = (*Service)(nil)
