package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mcoot/drawguess/internal/api/apierr"
	"github.com/mcoot/drawguess/internal/api/response"
	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/services/room"
	"github.com/mcoot/drawguess/internal/web/sse"
)

// RoomReader is the read-only view of the room controller used by the API
type RoomReader interface {
	GetRoom(ctx context.Context, rawCode string) (*model.Room, error)
	ListRooms(ctx context.Context) []room.Summary
	GetHistory(ctx context.Context, rawCode string) ([]*model.GameSummary, error)
	RoomCount() int
}

var _ RoomReader = (*room.Controller)(nil)

// RoomHandler handles room inspection endpoints
type RoomHandler struct {
	rooms      RoomReader
	hubManager *sse.HubManager
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms RoomReader, hubManager *sse.HubManager) *RoomHandler {
	return &RoomHandler{
		rooms:      rooms,
		hubManager: hubManager,
	}
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries := h.rooms.ListRooms(r.Context())

	resp := make([]response.RoomSummary, len(summaries))
	for i, s := range summaries {
		resp[i] = response.RoomSummaryFromModel(s)
	}
	response.List(w, resp)
}

// Get handles GET /api/v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.GetRoom(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RoomFromModel(rm))
}

// History handles GET /api/v1/rooms/{code}/history
func (h *RoomHandler) History(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.rooms.GetHistory(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	resp := make([]response.GameSummary, len(summaries))
	for i, g := range summaries {
		resp[i] = response.GameSummaryFromModel(g)
	}
	response.List(w, resp)
}

// Events handles GET /api/v1/rooms/{code}/events, a spectator SSE stream
func (h *RoomHandler) Events(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.GetRoom(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	hub := h.hubManager.GetOrCreateHub(rm.Code)

	// The room may have been reclaimed while the hub was being created
	if _, err := h.rooms.GetRoom(r.Context(), string(rm.Code)); err != nil {
		h.hubManager.RemoveHub(rm.Code)
		apierr.WriteError(w, err)
		return
	}

	sse.ServeSSE(w, r, hub, uuid.NewString())
}
