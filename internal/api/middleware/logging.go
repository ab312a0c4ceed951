package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/drawguess/internal/middleware"
)

// Logging creates request logging middleware for the API and websocket routes
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger.With(slog.String("component", "http")))
}
