package model

import (
	"encoding/json"
	"time"
)

// EventType identifies the type of event sent to or from a client
type EventType string

const (
	// Client to server
	EventJoinRoom              EventType = "join_room"
	EventStartGame             EventType = "start_game"
	EventWordSelected          EventType = "word_selected"
	EventRequestCanvasSnapshot EventType = "request_canvas_snapshot"
	EventClientClearCanvas     EventType = "client_clear_canvas"
	EventLeaveRoom             EventType = "leave_room"

	// Server to client
	EventJoinedRoomSuccess             EventType = "joined_room_success"
	EventRoomPlayers                   EventType = "room_players"
	EventGameStarted                   EventType = "game_started"
	EventRoundStarted                  EventType = "round_started"
	EventChooseWord                    EventType = "choose_word"
	EventSetWordBlanks                 EventType = "set_word_blanks"
	EventStartDrawing                  EventType = "start_drawing"
	EventUpdateTimer                   EventType = "update_timer"
	EventRoundEnded                    EventType = "round_ended"
	EventClearCanvas                   EventType = "clear_canvas"
	EventRequestCanvasSnapshotToDrawer EventType = "request_canvas_snapshot_to_drawer"
	EventCorrectGuess                  EventType = "correct_guess"
	EventScoresUpdate                  EventType = "scores_update"
	EventGameOver                      EventType = "game_over"
	EventError                         EventType = "error"

	// Both directions
	EventPathBegin      EventType = "path_begin"
	EventPathPoint      EventType = "path_point"
	EventPathEnd        EventType = "path_end"
	EventCanvasSnapshot EventType = "canvas_snapshot"
	EventChatMessage    EventType = "chat_message"
)

// IsStroke returns true for the draw-stroke events that are relayed verbatim
func (t EventType) IsStroke() bool {
	return t == EventPathBegin || t == EventPathPoint || t == EventPathEnd
}

// Scope describes who an envelope is addressed to
type Scope string

const (
	ScopeRoom   Scope = "room"   // Every member of the room
	ScopeOthers Scope = "others" // Every member except the originator
	ScopeDirect Scope = "direct" // A single session
)

// Envelope is an outbound event with its recipients already resolved.
// Recipients are captured while the room is locked so delivery order and
// membership stay consistent with the state change that produced the event.
type Envelope struct {
	Type       EventType
	RoomCode   RoomCode
	Scope      Scope
	Recipients []SessionID
	Payload    any
	Timestamp  time.Time
}

// Broadcast returns true if the envelope is visible to the room as a whole
func (e Envelope) Broadcast() bool {
	return e.Scope != ScopeDirect
}

// Frame is the JSON wire form of a server event
type Frame struct {
	Type      EventType `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Encode renders the envelope as a wire frame
func (e Envelope) Encode() ([]byte, error) {
	payload := e.Payload
	if payload == nil {
		payload = EmptyPayload{}
	}
	return json.Marshal(Frame{Type: e.Type, Payload: payload, Timestamp: e.Timestamp})
}

// JoinedRoomSuccessPayload acknowledges a join to the joining session
type JoinedRoomSuccessPayload struct {
	IsHost    bool      `json:"isHost"`
	SessionID SessionID `json:"sessionId"`
	RoomCode  RoomCode  `json:"roomCode"`
}

// GameStartedPayload is sent when a game begins
type GameStartedPayload struct {
	Round       int `json:"round"`
	TotalRounds int `json:"totalRounds"`
}

// RoundStartedPayload is sent when a later round begins
type RoundStartedPayload struct {
	Round       int       `json:"round"`
	TotalRounds int       `json:"totalRounds"`
	DrawerID    SessionID `json:"drawerId"`
}

// SetWordBlanksPayload tells guessers how long the word is
type SetWordBlanksPayload struct {
	Length int `json:"length"`
}

// UpdateTimerPayload carries the countdown
type UpdateTimerPayload struct {
	TimeLeft int `json:"timeLeft"`
}

// RoundEndedPayload carries the finished round number
type RoundEndedPayload struct {
	Round int `json:"round"`
}

// SnapshotRequestPayload is forwarded to the drawer
type SnapshotRequestPayload struct {
	RequesterID SessionID `json:"requesterId"`
}

// CanvasSnapshotPayload delivers an image to a single requester
type CanvasSnapshotPayload struct {
	TargetID  SessionID `json:"targetId,omitempty"`
	ImageData string    `json:"imageData"`
}

// ChatMessagePayload is an ordinary chat line
type ChatMessagePayload struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// CorrectGuessPayload announces who scored and how much
type CorrectGuessPayload struct {
	PlayerID SessionID `json:"playerId"`
	Sender   string    `json:"sender"`
	Points   int       `json:"points"`
}

// ScoresPayload is the full scoreboard, used by scores_update and game_over
type ScoresPayload struct {
	Scores map[SessionID]int `json:"scores"`
}

// EmptyPayload is used by events that carry no data
type EmptyPayload struct{}

// ErrorPayload reports a rejected client frame
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StrokePayload is an opaque stroke segment; the server never inspects it
type StrokePayload = json.RawMessage
