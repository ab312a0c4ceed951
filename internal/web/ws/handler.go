package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/drawguess/internal/dependencies/clock"
	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/services/room"
)

// RoomController is the subset of the room controller driven by websocket events
type RoomController interface {
	JoinRoom(ctx context.Context, id model.SessionID, name, color, rawCode string) (*room.JoinResult, error)
	StartGame(ctx context.Context, id model.SessionID, rawCode string, opts room.StartOptions) error
	SelectWord(ctx context.Context, id model.SessionID, rawCode, word string) error
	Chat(ctx context.Context, id model.SessionID, rawCode, text string) error
	RelayStroke(ctx context.Context, id model.SessionID, rawCode string, typ model.EventType, payload json.RawMessage) error
	ClearCanvas(ctx context.Context, id model.SessionID, rawCode string) error
	RequestSnapshot(ctx context.Context, id model.SessionID, rawCode string) error
	DeliverSnapshot(ctx context.Context, id model.SessionID, rawCode string, target model.SessionID, imageData string) error
	LeaveRoom(ctx context.Context, id model.SessionID) error
	Disconnect(ctx context.Context, id model.SessionID)
}

var _ RoomController = (*room.Controller)(nil)

// eventHandler handles one inbound event type for a client
type eventHandler func(ctx context.Context, c *Client, payload json.RawMessage) error

// errUndecodable marks a payload that could not be decoded
var errUndecodable = errors.New("undecodable payload")

// Handler upgrades HTTP requests to websocket sessions and routes inbound events
type Handler struct {
	hub        *Hub
	controller RoomController
	clock      clock.Clock
	upgrader   websocket.Upgrader
	handlers   map[model.EventType]eventHandler
	logger     *slog.Logger
}

// NewHandler creates a new websocket Handler
func NewHandler(hub *Hub, controller RoomController, clk clock.Clock, logger *slog.Logger) *Handler {
	h := &Handler{
		hub:        hub,
		controller: controller,
		clock:      clk,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Any origin may connect
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "ws")),
	}

	h.handlers = map[model.EventType]eventHandler{
		model.EventJoinRoom:              h.handleJoinRoom,
		model.EventStartGame:             h.handleStartGame,
		model.EventWordSelected:          h.handleWordSelected,
		model.EventChatMessage:           h.handleChat,
		model.EventPathBegin:             h.handleStroke(model.EventPathBegin),
		model.EventPathPoint:             h.handleStroke(model.EventPathPoint),
		model.EventPathEnd:               h.handleStroke(model.EventPathEnd),
		model.EventClientClearCanvas:     h.handleClearCanvas,
		model.EventRequestCanvasSnapshot: h.handleRequestSnapshot,
		model.EventCanvasSnapshot:        h.handleCanvasSnapshot,
		model.EventLeaveRoom:             h.handleLeaveRoom,
	}
	return h
}

// ServeHTTP upgrades the connection and runs the session until the peer disconnects
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	id := model.SessionID(uuid.NewString())
	client := newClient(id, conn, h, h.logger)
	h.hub.Register(client)

	h.logger.Info("websocket connected",
		slog.String("session_id", string(id)),
		slog.String("remote_addr", r.RemoteAddr))

	client.run(r.Context())

	h.logger.Info("websocket disconnected", slog.String("session_id", string(id)))
}

// handleFrame decodes one inbound frame and routes it through the dispatch table
func (h *Handler) handleFrame(ctx context.Context, c *Client, data []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil || frame.Type == "" {
		h.sendError(c, ErrCodeInvalidMessage, "invalid message format")
		return
	}

	handle, ok := h.handlers[frame.Type]
	if !ok {
		h.sendError(c, ErrCodeUnknownEvent, "unknown event type: "+string(frame.Type))
		return
	}

	err := handle(ctx, c, frame.Payload)
	switch {
	case err == nil:
	case errors.Is(err, errUndecodable):
		h.sendError(c, ErrCodeInvalidMessage, "invalid payload for "+string(frame.Type))
	case errors.Is(err, model.ErrMalformedPayload):
		h.logger.Warn("event dropped",
			slog.String("session_id", string(c.id)),
			slog.String("event", string(frame.Type)),
			slog.Any("error", err))
	default:
		// NotMember, RoomNotFound and rule violations are per-event and ignored
		h.logger.Debug("event ignored",
			slog.String("session_id", string(c.id)),
			slog.String("event", string(frame.Type)),
			slog.Any("error", err))
	}
}

// sendError queues a private error frame for the client
func (h *Handler) sendError(c *Client, code, message string) {
	env := model.Envelope{
		Type:       model.EventError,
		Scope:      model.ScopeDirect,
		Recipients: []model.SessionID{c.id},
		Payload:    model.ErrorPayload{Code: code, Message: message},
		Timestamp:  h.clock.Now().UTC(),
	}
	data, err := env.Encode()
	if err != nil {
		h.logger.Error("failed to encode error frame", slog.Any("error", err))
		return
	}
	c.Send(data)
}

func decode(raw json.RawMessage, v any) error {
	if err := decodePayload(raw, v); err != nil {
		return errors.Join(errUndecodable, err)
	}
	return nil
}

func (h *Handler) handleJoinRoom(ctx context.Context, c *Client, raw json.RawMessage) error {
	var p JoinRoomPayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	_, err := h.controller.JoinRoom(ctx, c.id, p.Name, p.Color, p.RoomCode)
	return err
}

func (h *Handler) handleStartGame(ctx context.Context, c *Client, raw json.RawMessage) error {
	var p StartGamePayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	return h.controller.StartGame(ctx, c.id, p.RoomCode, room.StartOptions{
		TotalRounds: p.TotalRounds,
		ResetScores: p.ResetScores,
	})
}

func (h *Handler) handleWordSelected(ctx context.Context, c *Client, raw json.RawMessage) error {
	var p WordSelectedPayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	return h.controller.SelectWord(ctx, c.id, p.RoomCode, p.Word)
}

func (h *Handler) handleChat(ctx context.Context, c *Client, raw json.RawMessage) error {
	var p ChatPayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	return h.controller.Chat(ctx, c.id, p.RoomCode, p.Text)
}

func (h *Handler) handleStroke(typ model.EventType) eventHandler {
	return func(ctx context.Context, c *Client, raw json.RawMessage) error {
		return h.controller.RelayStroke(ctx, c.id, strokeRoomCode(raw), typ, raw)
	}
}

func (h *Handler) handleClearCanvas(ctx context.Context, c *Client, raw json.RawMessage) error {
	var p RoomPayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	return h.controller.ClearCanvas(ctx, c.id, p.RoomCode)
}

// handleLeaveRoom keeps the connection open outside any room
func (h *Handler) handleLeaveRoom(ctx context.Context, c *Client, _ json.RawMessage) error {
	return h.controller.LeaveRoom(ctx, c.id)
}

func (h *Handler) handleRequestSnapshot(ctx context.Context, c *Client, raw json.RawMessage) error {
	var p RoomPayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	return h.controller.RequestSnapshot(ctx, c.id, p.RoomCode)
}

func (h *Handler) handleCanvasSnapshot(ctx context.Context, c *Client, raw json.RawMessage) error {
	var p SnapshotPayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	return h.controller.DeliverSnapshot(ctx, c.id, p.RoomCode, p.TargetID, p.ImageData)
}
