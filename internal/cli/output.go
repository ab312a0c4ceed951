package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]any{
			"error": map[string]string{"message": err.Error()},
		})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintf(o.w, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printHealthResult(v)
	case []RoomSummary:
		o.printRoomList(v)
	case Room:
		o.printRoom(v)
	case []GameSummary:
		o.printHistory(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
	Words       int    `json:"words"`
}

// RoomSummary response type
type RoomSummary struct {
	Code        string `json:"code"`
	Phase       string `json:"phase"`
	Round       int    `json:"round"`
	TotalRounds int    `json:"totalRounds"`
	MemberCount int    `json:"memberCount"`
}

// Player response type
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	IsDrawer bool   `json:"isDrawer"`
	Score    int    `json:"score"`
}

// Room response type
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
}

// GameSummary response type
type GameSummary struct {
	RoomCode    string         `json:"roomCode"`
	GameNumber  int            `json:"gameNumber"`
	TotalRounds int            `json:"totalRounds"`
	FinalScores map[string]int `json:"finalScores"`
	Winner      *string        `json:"winner"`
	CompletedAt time.Time      `json:"completedAt"`
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	fmt.Fprintf(o.w, "Rooms: %d\n", h.Rooms)
	fmt.Fprintf(o.w, "Connections: %d\n", h.Connections)
	fmt.Fprintf(o.w, "Words: %d\n", h.Words)
}

func (o *Output) printRoomList(rooms []RoomSummary) {
	if len(rooms) == 0 {
		fmt.Fprintln(o.w, "No live rooms")
		return
	}
	for _, r := range rooms {
		fmt.Fprintf(o.w, "%-8s %-14s round %d/%d  %d player(s)\n",
			r.Code, r.Phase, r.Round, r.TotalRounds, r.MemberCount)
	}
}

func (o *Output) printRoom(r Room) {
	fmt.Fprintf(o.w, "Room: %s\n", r.Code)
	fmt.Fprintf(o.w, "Phase: %s\n", r.Phase)
	fmt.Fprintf(o.w, "Round: %d/%d\n", r.Round, r.TotalRounds)
	if r.Phase == "choosing_word" || r.Phase == "drawing" {
		fmt.Fprintf(o.w, "Time Left: %ds\n", r.TimeLeft)
	}
	if r.WordLength > 0 {
		fmt.Fprintf(o.w, "Word: %s\n", strings.TrimSpace(strings.Repeat("_ ", r.WordLength)))
	}
	fmt.Fprintf(o.w, "Players (%d):\n", len(r.Players))
	for _, p := range r.Players {
		drawer := ""
		if p.IsDrawer {
			drawer = " [drawing]"
		}
		fmt.Fprintf(o.w, "  - %s (%s) %d%s\n", p.Name, p.ID, p.Score, drawer)
	}
}

func (o *Output) printHistory(games []GameSummary) {
	if len(games) == 0 {
		fmt.Fprintln(o.w, "No finished games")
		return
	}
	for _, g := range games {
		winner := "tie"
		if g.Winner != nil {
			winner = *g.Winner
		}
		fmt.Fprintf(o.w, "Game %d (%d rounds) at %s, winner: %s\n",
			g.GameNumber, g.TotalRounds, g.CompletedAt.Format(time.RFC3339), winner)

		ids := make([]string, 0, len(g.FinalScores))
		for id := range g.FinalScores {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			if g.FinalScores[ids[i]] != g.FinalScores[ids[j]] {
				return g.FinalScores[ids[i]] > g.FinalScores[ids[j]]
			}
			return ids[i] < ids[j]
		})
		for _, id := range ids {
			fmt.Fprintf(o.w, "  %s: %d\n", id, g.FinalScores[id])
		}
	}
}
