package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/drawguess/internal/api"
	"github.com/mcoot/drawguess/internal/config"
	"github.com/mcoot/drawguess/internal/factory"
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:           "drawguess-server",
		Short:         "Run the drawguess game server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			run(cfg)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", os.Getenv("DRAWGUESS_CONFIG"), "path to a YAML config file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) {
	logger := cfg.Logging.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	app, err := factory.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := app.LoadDictionary(context.Background()); err != nil {
		logger.Error("failed to load dictionary", slog.String("error", err.Error()))
		os.Exit(1)
	}

	server := api.NewServer(app.Router(), factory.ServerConfig(cfg.Server), logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", cfg.Server.Addr()),
		slog.String("storage", cfg.Storage.Type),
		slog.Int("round_seconds", cfg.Game.RoundSeconds),
		slog.Int("total_rounds", cfg.Game.TotalRounds))

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
		}
		if err := app.Shutdown(shutdownCtx); err != nil {
			logger.Error("application shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}
