package model

import (
	"strings"
	"time"
)

// RoomCode is the canonical (upper-case, trimmed) identifier of a room
type RoomCode string

// CanonicalRoomCode normalises a user-supplied room code.
// Codes are case-insensitive, so "abcd" and " ABCD " name the same room.
func CanonicalRoomCode(raw string) (RoomCode, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", ErrInvalidRoomCode
	}
	return RoomCode(code), nil
}

// Phase is the current state of a room's round state machine
type Phase string

const (
	PhaseLobby        Phase = "lobby"         // No game started yet
	PhaseChoosingWord Phase = "choosing_word" // Drawer has been offered words
	PhaseDrawing      Phase = "drawing"       // Word selected, guesses are scored
	PhaseRoundEnd     Phase = "round_end"     // Countdown expired, transition pending
	PhaseGameOver     Phase = "game_over"     // Final scoreboard sent
)

// RoundActive returns true while a round is being played
func (p Phase) RoundActive() bool {
	return p == PhaseChoosingWord || p == PhaseDrawing
}

// Room is the aggregate holding all per-room game state.
// It is not safe for concurrent use; the room controller serialises access.
type Room struct {
	Code  RoomCode
	Phase Phase

	// Members in join order; join order governs drawer rotation
	Members []Member

	// Turn state
	CurrentDrawerID SessionID // Empty when there is no drawer
	CurrentWord     string    // Empty before selection
	WordChoices     []string  // Words offered to the current drawer

	// Round timing
	Round         int // 1-based, 0 before game start
	TotalRounds   int
	RoundDuration int // Seconds per round
	TimeLeft      int // Seconds remaining in the current round

	// Scoring
	Scores           map[SessionID]int
	GuessedThisRound map[SessionID]struct{}

	GamesPlayed int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewRoom creates an empty room in the lobby phase
func NewRoom(code RoomCode, totalRounds, roundDuration int, now time.Time) *Room {
	return &Room{
		Code:             code,
		Phase:            PhaseLobby,
		Members:          []Member{},
		TotalRounds:      totalRounds,
		RoundDuration:    roundDuration,
		TimeLeft:         roundDuration,
		Scores:           make(map[SessionID]int),
		GuessedThisRound: make(map[SessionID]struct{}),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// MemberIndex returns the join-order index of a member, or -1
func (r *Room) MemberIndex(id SessionID) int {
	for i := range r.Members {
		if r.Members[i].ID == id {
			return i
		}
	}
	return -1
}

// IsMember returns true if the session is in the room
func (r *Room) IsMember(id SessionID) bool {
	return r.MemberIndex(id) >= 0
}

// GetMember returns the member with the given session ID, or nil if not found
func (r *Room) GetMember(id SessionID) *Member {
	if i := r.MemberIndex(id); i >= 0 {
		return &r.Members[i]
	}
	return nil
}

// IsEmpty returns true if the room has no members
func (r *Room) IsEmpty() bool {
	return len(r.Members) == 0
}

// MemberIDs returns member session IDs in join order
func (r *Room) MemberIDs() []SessionID {
	ids := make([]SessionID, len(r.Members))
	for i, m := range r.Members {
		ids[i] = m.ID
	}
	return ids
}

// OtherMemberIDs returns member session IDs except the given one
func (r *Room) OtherMemberIDs(except SessionID) []SessionID {
	ids := make([]SessionID, 0, len(r.Members))
	for _, m := range r.Members {
		if m.ID != except {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// AddMember appends a member and initialises its score.
// Returns false if the session was already a member; an existing score is never reset.
func (r *Room) AddMember(m Member) bool {
	if _, ok := r.Scores[m.ID]; !ok {
		r.Scores[m.ID] = 0
	}
	if r.IsMember(m.ID) {
		return false
	}
	r.Members = append(r.Members, m)
	return true
}

// RemoveMember removes a member from the member set and the guessed set.
// The score entry is intentionally kept.
func (r *Room) RemoveMember(id SessionID) bool {
	i := r.MemberIndex(id)
	if i < 0 {
		return false
	}
	r.Members = append(r.Members[:i], r.Members[i+1:]...)
	delete(r.GuessedThisRound, id)
	if r.CurrentDrawerID == id {
		r.CurrentDrawerID = ""
	}
	return true
}

// NextDrawer returns the member after the current drawer in join order,
// wrapping around. If the current drawer is no longer a member the first
// member is chosen. Returns "" for an empty room.
func (r *Room) NextDrawer() SessionID {
	if len(r.Members) == 0 {
		return ""
	}
	i := r.MemberIndex(r.CurrentDrawerID)
	if i < 0 {
		return r.Members[0].ID
	}
	return r.Members[(i+1)%len(r.Members)].ID
}

// HasGuessed returns true if the session already scored for the active word
func (r *Room) HasGuessed(id SessionID) bool {
	_, ok := r.GuessedThisRound[id]
	return ok
}

// MarkGuessed records a correct guess. Returns false if already recorded.
func (r *Room) MarkGuessed(id SessionID) bool {
	if r.HasGuessed(id) {
		return false
	}
	r.GuessedThisRound[id] = struct{}{}
	return true
}

// ResetGuessed clears the guessed set
func (r *Room) ResetGuessed() {
	r.GuessedThisRound = make(map[SessionID]struct{})
}

// AddScore adds non-negative points to a session's score
func (r *Room) AddScore(id SessionID, points int) int {
	if points > 0 {
		r.Scores[id] += points
	}
	return r.Scores[id]
}

// ResetScores zeroes scores for current members and drops departed sessions
func (r *Room) ResetScores() {
	r.Scores = make(map[SessionID]int, len(r.Members))
	for _, m := range r.Members {
		r.Scores[m.ID] = 0
	}
}

// ScoresCopy returns a copy of the scores map safe to hand to other goroutines
func (r *Room) ScoresCopy() map[SessionID]int {
	scores := make(map[SessionID]int, len(r.Scores))
	for id, s := range r.Scores {
		scores[id] = s
	}
	return scores
}

// Players returns the player list in join order
func (r *Room) Players() []Player {
	players := make([]Player, len(r.Members))
	for i, m := range r.Members {
		players[i] = Player{
			ID:       m.ID,
			Name:     m.Name,
			Color:    m.Color,
			IsDrawer: m.ID == r.CurrentDrawerID,
			Score:    r.Scores[m.ID],
		}
	}
	return players
}

// Clone returns a deep copy of the room
func (r *Room) Clone() *Room {
	c := *r
	c.Members = append([]Member(nil), r.Members...)
	c.WordChoices = append([]string(nil), r.WordChoices...)
	c.Scores = r.ScoresCopy()
	c.GuessedThisRound = make(map[SessionID]struct{}, len(r.GuessedThisRound))
	for id := range r.GuessedThisRound {
		c.GuessedThisRound[id] = struct{}{}
	}
	return &c
}

// GameSummary is a record of a finished game in a room
type GameSummary struct {
	RoomCode    RoomCode          `json:"roomCode"`
	GameNumber  int               `json:"gameNumber"`
	TotalRounds int               `json:"totalRounds"`
	FinalScores map[SessionID]int `json:"finalScores"`
	Winner      SessionID         `json:"winner,omitempty"` // Empty if tie or no scores
	CompletedAt time.Time         `json:"completedAt"`
}
