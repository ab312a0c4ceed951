package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/drawguess/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInvalidRoomCode  = "INVALID_ROOM_CODE"
	CodeRoomNotFound     = "ROOM_NOT_FOUND"
	CodeSessionNotFound  = "SESSION_NOT_FOUND"
	CodeNotMember        = "NOT_MEMBER"
	CodeGameInProgress   = "GAME_IN_PROGRESS"
	CodeNotDrawer        = "NOT_DRAWER"
	CodeInvalidWord      = "INVALID_WORD"
	CodeNoDrawer         = "NO_DRAWER"
	CodeNotRequested     = "SNAPSHOT_NOT_REQUESTED"
	CodeDictionaryEmpty  = "DICTIONARY_NOT_LOADED"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeMalformedPayload = "MALFORMED_PAYLOAD"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrInvalidRoomCode):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRoomCode, "Room code is invalid"}}
	case errors.Is(err, model.ErrSessionNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeSessionNotFound, "Session not found"}}
	case errors.Is(err, model.ErrNotMember):
		return &httpError{http.StatusForbidden, APIError{CodeNotMember, "Not a member of this room"}}
	case errors.Is(err, model.ErrMalformedPayload):
		return &httpError{http.StatusBadRequest, APIError{CodeMalformedPayload, "Malformed payload"}}
	case errors.Is(err, model.ErrGameInProgress):
		return &httpError{http.StatusConflict, APIError{CodeGameInProgress, "Game is in progress"}}
	case errors.Is(err, model.ErrNotDrawer):
		return &httpError{http.StatusForbidden, APIError{CodeNotDrawer, "Only the drawer can do that"}}
	case errors.Is(err, model.ErrInvalidWord), errors.Is(err, model.ErrNotChoosing):
		return &httpError{http.StatusConflict, APIError{CodeInvalidWord, "Word cannot be selected"}}
	case errors.Is(err, model.ErrNoDrawer):
		return &httpError{http.StatusConflict, APIError{CodeNoDrawer, "No round in progress"}}
	case errors.Is(err, model.ErrSnapshotNotRequested):
		return &httpError{http.StatusConflict, APIError{CodeNotRequested, "Snapshot was not requested"}}
	case errors.Is(err, model.ErrDictionaryNotLoaded):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeDictionaryEmpty, "Word list not loaded"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
