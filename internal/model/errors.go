package model

import "errors"

// Common errors used across the application
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Room errors
	ErrRoomNotFound    = errors.New("room not found")
	ErrInvalidRoomCode = errors.New("invalid room code")
	ErrNotMember       = errors.New("session is not a member of the room")

	// Payload errors
	ErrMalformedPayload = errors.New("malformed payload")

	// Game errors
	ErrGameInProgress = errors.New("game is in progress")
	ErrNotDrawer      = errors.New("session is not the current drawer")
	ErrNotChoosing    = errors.New("room is not waiting for a word")
	ErrInvalidWord    = errors.New("word was not offered")
	ErrNoDrawer       = errors.New("room has no drawer")

	// Snapshot errors
	ErrSnapshotNotRequested = errors.New("no pending snapshot request from target")

	// Dictionary errors
	ErrDictionaryNotLoaded = errors.New("dictionary not loaded")
)
