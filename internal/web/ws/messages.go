package ws

import (
	"encoding/json"

	"github.com/mcoot/drawguess/internal/model"
)

// Error codes sent in private error frames
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeUnknownEvent   = "UNKNOWN_EVENT"
)

// InboundFrame is a message from client to server
type InboundFrame struct {
	Type    model.EventType `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRoomPayload is the payload for join_room
type JoinRoomPayload struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	RoomCode string `json:"roomCode"`
}

// StartGamePayload is the payload for start_game
type StartGamePayload struct {
	RoomCode    string `json:"roomCode"`
	TotalRounds int    `json:"totalRounds,omitempty"`
	ResetScores bool   `json:"resetScores,omitempty"`
}

// WordSelectedPayload is the payload for word_selected
type WordSelectedPayload struct {
	RoomCode string `json:"roomCode"`
	Word     string `json:"word"`
}

// ChatPayload is the payload for an inbound chat_message
type ChatPayload struct {
	RoomCode string `json:"roomCode"`
	Text     string `json:"text"`
}

// SnapshotPayload is the payload for an inbound canvas_snapshot
type SnapshotPayload struct {
	RoomCode  string          `json:"roomCode"`
	TargetID  model.SessionID `json:"targetId"`
	ImageData string          `json:"imageData"`
}

// RoomPayload carries only the optional room code, used by events with no other fields
type RoomPayload struct {
	RoomCode string `json:"roomCode"`
}

// decodePayload unmarshals a frame payload; a missing payload decodes as the zero value
func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// strokeRoomCode extracts an optional room code from an opaque stroke payload.
// Payloads that are not JSON objects carry no room code.
func strokeRoomCode(raw json.RawMessage) string {
	var p RoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ""
	}
	return p.RoomCode
}
