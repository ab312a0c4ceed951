package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/drawguess/internal/api"
	"github.com/mcoot/drawguess/internal/api/handler"
	"github.com/mcoot/drawguess/internal/config"
	"github.com/mcoot/drawguess/internal/dependencies/clock"
	"github.com/mcoot/drawguess/internal/dependencies/random"
	"github.com/mcoot/drawguess/internal/services/dictionary"
	"github.com/mcoot/drawguess/internal/services/registry"
	"github.com/mcoot/drawguess/internal/services/room"
	"github.com/mcoot/drawguess/internal/services/scoring"
	"github.com/mcoot/drawguess/internal/storage"
	"github.com/mcoot/drawguess/internal/storage/memory"
	redisstorage "github.com/mcoot/drawguess/internal/storage/redis"
	"github.com/mcoot/drawguess/internal/web/sse"
	"github.com/mcoot/drawguess/internal/web/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	Config config.Config
	Logger *slog.Logger

	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry          *registry.Service
	DictionaryService *dictionary.Service
	ScoringService    *scoring.Service
	RoomController    *room.Controller

	// Transports
	HubManager  *sse.HubManager
	Broadcaster *sse.Broadcaster
	WSHub       *ws.Hub
	WSHandler   *ws.Handler
}

// New creates a new application with all dependencies wired
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	return newWithDependencies(cfg, store, clock.New(), random.New(), logger), nil
}

func newStorage(cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case "", StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		redisStore, err := redisstorage.New(RedisConfig(cfg.Redis))
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return redisStore, nil
	default:
		return nil, errors.New("invalid storage type: must be 'memory' or 'redis'")
	}
}

// RedisConfig converts the redis section of the configuration
func RedisConfig(cfg config.RedisConfig) redisstorage.Config {
	return redisstorage.Config{
		URL:          cfg.URL,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		HistoryTTL:   cfg.HistoryTTL,
		HistoryLimit: cfg.HistoryLimit,
	}
}

// RoomConfig converts the game section of the configuration
func RoomConfig(cfg config.GameConfig) room.Config {
	return room.Config{
		RoundSeconds: cfg.RoundSeconds,
		TotalRounds:  cfg.TotalRounds,
		WordChoices:  cfg.WordChoices,
		CleanupGrace: cfg.CleanupGrace,
	}
}

// ServerConfig converts the server section of the configuration
func ServerConfig(cfg config.ServerConfig) api.ServerConfig {
	return api.ServerConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(cfg config.Config, store storage.Storage, clk clock.Clock, rnd random.Random, logger *slog.Logger) *App {
	reg := registry.New()
	dictService := dictionary.New(store, rnd)
	scoringService := scoring.New()

	hubManager := sse.NewHubManager(logger)
	broadcaster := sse.NewBroadcaster(hubManager, logger)
	wsHub := ws.NewHub(logger)

	roomController := room.NewController(
		RoomConfig(cfg.Game),
		reg,
		dictService,
		scoringService,
		store,
		room.Dispatchers{wsHub, broadcaster},
		clk,
		rnd,
		logger,
	)
	roomController.OnRoomDeleted(broadcaster.RoomDeleted)

	return &App{
		Config:            cfg,
		Logger:            logger,
		Storage:           store,
		Clock:             clk,
		Random:            rnd,
		Registry:          reg,
		DictionaryService: dictService,
		ScoringService:    scoringService,
		RoomController:    roomController,
		HubManager:        hubManager,
		Broadcaster:       broadcaster,
		WSHub:             wsHub,
		WSHandler:         ws.NewHandler(wsHub, roomController, clk, logger),
	}
}

// LoadDictionary loads the word list from the configured file, falling back
// to the stored list and finally to the built-in words.
func (a *App) LoadDictionary(ctx context.Context) error {
	path := a.Config.Game.DictionaryPath
	if path != "" {
		err := a.DictionaryService.LoadFromFile(ctx, path)
		if err == nil {
			a.Logger.Info("dictionary loaded from file",
				slog.String("path", path),
				slog.Int("words", a.DictionaryService.WordCount()))
			return nil
		}
		a.Logger.Warn("could not load dictionary file",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}

	if err := a.DictionaryService.LoadFromStorage(ctx); err == nil {
		a.Logger.Info("dictionary loaded from storage",
			slog.Int("words", a.DictionaryService.WordCount()))
		return nil
	}

	a.Logger.Warn("using built-in dictionary",
		slog.Int("words", len(dictionary.DefaultWords)))
	return a.DictionaryService.LoadWords(dictionary.DefaultWords)
}

// Router builds the HTTP handler serving the API, the spectator streams and /ws
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:      a.Logger,
		Rooms:       a.RoomController,
		HubManager:  a.HubManager,
		WebSocket:   a.WSHandler,
		Connections: a.WSHub,
		Words:       handler.CounterFunc(a.DictionaryService.WordCount),
	})
}

// Shutdown stops timers, closes live connections and releases storage
func (a *App) Shutdown(ctx context.Context) error {
	a.WSHub.CloseAll()
	a.HubManager.CloseAll()

	err := a.RoomController.Shutdown(ctx)

	if closer, ok := a.Storage.(io.Closer); ok {
		err = errors.Join(err, closer.Close())
	}
	return err
}
