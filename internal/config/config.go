// Package config provides Viper-based configuration loading for the drawguess server.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DRAWGUESS_SERVER_PORT
const EnvPrefix = "DRAWGUESS"

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the "host:port" listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GameConfig holds the rules applied to new rooms.
type GameConfig struct {
	RoundSeconds   int           `mapstructure:"round_seconds"`
	TotalRounds    int           `mapstructure:"total_rounds"`
	WordChoices    int           `mapstructure:"word_choices"`
	CleanupGrace   time.Duration `mapstructure:"cleanup_grace"`
	DictionaryPath string        `mapstructure:"dictionary_path"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	HistoryTTL   time.Duration `mapstructure:"history_ttl"`
	HistoryLimit int           `mapstructure:"history_limit"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	// Type is "memory" or "redis".
	Type  string      `mapstructure:"type"`
	Redis RedisConfig `mapstructure:"redis"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "text".
	Format string `mapstructure:"format"`
}

// SlogLevel converts Level to a slog.Level.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the root logger writing to w.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Game    GameConfig    `mapstructure:"game"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "server.read_timeout must not be negative")
	}
	if c.Server.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "server.shutdown_timeout must be positive")
	}

	if c.Game.RoundSeconds < 1 {
		errs = append(errs, fmt.Sprintf("game.round_seconds must be >= 1, got %d", c.Game.RoundSeconds))
	}
	if c.Game.TotalRounds < 1 {
		errs = append(errs, fmt.Sprintf("game.total_rounds must be >= 1, got %d", c.Game.TotalRounds))
	}
	if c.Game.WordChoices < 1 {
		errs = append(errs, fmt.Sprintf("game.word_choices must be >= 1, got %d", c.Game.WordChoices))
	}
	if c.Game.CleanupGrace < 0 {
		errs = append(errs, "game.cleanup_grace must not be negative")
	}

	switch c.Storage.Type {
	case "memory":
	case "redis":
		if c.Storage.Redis.URL == "" {
			errs = append(errs, "storage.redis.url must not be empty when storage.type is redis")
		}
		if c.Storage.Redis.PoolSize < 1 {
			errs = append(errs, fmt.Sprintf("storage.redis.pool_size must be >= 1, got %d", c.Storage.Redis.PoolSize))
		}
		if c.Storage.Redis.MinIdleConns > c.Storage.Redis.PoolSize {
			errs = append(errs, "storage.redis.min_idle_conns must not exceed storage.redis.pool_size")
		}
		if c.Storage.Redis.HistoryLimit < 0 {
			errs = append(errs, "storage.redis.history_limit must not be negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.type must be one of [memory, redis], got %q", c.Storage.Type))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		errs = append(errs, fmt.Sprintf("logging.format must be one of [json, text], got %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given YAML file, applies DRAWGUESS_*
// environment overrides, and validates the result. An empty path uses
// defaults and the environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration produced by defaults alone.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

// SetDefaults registers every key's default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("game.round_seconds", 60)
	v.SetDefault("game.total_rounds", 3)
	v.SetDefault("game.word_choices", 3)
	v.SetDefault("game.cleanup_grace", "60s")
	v.SetDefault("game.dictionary_path", "data/words.txt")

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.redis.url", "redis://localhost:6379")
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.history_ttl", "24h")
	v.SetDefault("storage.redis.history_limit", 50)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
