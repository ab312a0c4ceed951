package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/drawguess/internal/api/handler"
	"github.com/mcoot/drawguess/internal/api/middleware"
	"github.com/mcoot/drawguess/internal/web/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Rooms       handler.RoomReader
	HubManager  *sse.HubManager
	WebSocket   http.Handler    // Served at /ws when set
	Connections handler.Counter // Live websocket sessions, for health
	Words       handler.Counter // Dictionary size, for health
}

// NewRouter creates a new router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	hubManager := cfg.HubManager
	if hubManager == nil {
		hubManager = sse.NewHubManager(cfg.Logger)
	}

	roomHandler := handler.NewRoomHandler(cfg.Rooms, hubManager)
	healthHandler := handler.NewHealthHandler(cfg.Rooms, cfg.Connections, cfg.Words)

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	// Real-time game channel
	if cfg.WebSocket != nil {
		r.Handle("/ws", cfg.WebSocket).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	rooms := api.PathPrefix("/rooms").Subrouter()
	rooms.HandleFunc("", roomHandler.List).Methods(http.MethodGet)
	rooms.HandleFunc("/{code}", roomHandler.Get).Methods(http.MethodGet)
	rooms.HandleFunc("/{code}/history", roomHandler.History).Methods(http.MethodGet)
	rooms.HandleFunc("/{code}/events", roomHandler.Events).Methods(http.MethodGet)

	return r
}
