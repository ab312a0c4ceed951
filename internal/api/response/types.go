package response

import (
	"time"
	"unicode/utf8"

	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/services/room"
)

// Health is the response for the health endpoint
type Health struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
	Words       int    `json:"words"`
}

// Player represents a room member in API responses
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	IsDrawer bool   `json:"isDrawer"`
	Score    int    `json:"score"`
}

// PlayerFromModel converts a model.Player
func PlayerFromModel(p model.Player) Player {
	return Player{
		ID:       string(p.ID),
		Name:     p.Name,
		Color:    p.Color,
		IsDrawer: p.IsDrawer,
		Score:    p.Score,
	}
}

// RoomSummary is one entry of the room list
type RoomSummary struct {
	Code        string `json:"code"`
	Phase       string `json:"phase"`
	Round       int    `json:"round"`
	TotalRounds int    `json:"totalRounds"`
	MemberCount int    `json:"memberCount"`
}

// RoomSummaryFromModel converts a room.Summary
func RoomSummaryFromModel(s room.Summary) RoomSummary {
	return RoomSummary{
		Code:        string(s.Code),
		Phase:       string(s.Phase),
		Round:       s.Round,
		TotalRounds: s.TotalRounds,
		MemberCount: s.MemberCount,
	}
}

// Room is a snapshot of a live room. The current word is never exposed,
// only its length once the drawer has picked it.
type Room struct {
	Code          string         `json:"code"`
	Phase         string         `json:"phase"`
	Round         int            `json:"round"`
	TotalRounds   int            `json:"totalRounds"`
	RoundDuration int            `json:"roundDuration"`
	TimeLeft      int            `json:"timeLeft"`
	DrawerID      *string        `json:"drawerId"`
	WordLength    int            `json:"wordLength,omitempty"`
	Players       []Player       `json:"players"`
	Scores        map[string]int `json:"scores"`
	GamesPlayed   int            `json:"gamesPlayed"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// RoomFromModel converts a model.Room
func RoomFromModel(r *model.Room) Room {
	players := make([]Player, 0, len(r.Members))
	for _, p := range r.Players() {
		players = append(players, PlayerFromModel(p))
	}

	scores := make(map[string]int, len(r.Scores))
	for id, s := range r.Scores {
		scores[string(id)] = s
	}

	var drawer *string
	if r.CurrentDrawerID != "" {
		d := string(r.CurrentDrawerID)
		drawer = &d
	}

	return Room{
		Code:          string(r.Code),
		Phase:         string(r.Phase),
		Round:         r.Round,
		TotalRounds:   r.TotalRounds,
		RoundDuration: r.RoundDuration,
		TimeLeft:      r.TimeLeft,
		DrawerID:      drawer,
		WordLength:    utf8.RuneCountInString(r.CurrentWord),
		Players:       players,
		Scores:        scores,
		GamesPlayed:   r.GamesPlayed,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// GameSummary represents a finished game
type GameSummary struct {
	RoomCode    string         `json:"roomCode"`
	GameNumber  int            `json:"gameNumber"`
	TotalRounds int            `json:"totalRounds"`
	FinalScores map[string]int `json:"finalScores"`
	Winner      *string        `json:"winner"`
	CompletedAt time.Time      `json:"completedAt"`
}

// GameSummaryFromModel converts a model.GameSummary
func GameSummaryFromModel(g *model.GameSummary) GameSummary {
	scores := make(map[string]int, len(g.FinalScores))
	for id, score := range g.FinalScores {
		scores[string(id)] = score
	}
	var winner *string
	if g.Winner != "" {
		w := string(g.Winner)
		winner = &w
	}
	return GameSummary{
		RoomCode:    string(g.RoomCode),
		GameNumber:  g.GameNumber,
		TotalRounds: g.TotalRounds,
		FinalScores: scores,
		Winner:      winner,
		CompletedAt: g.CompletedAt,
	}
}
