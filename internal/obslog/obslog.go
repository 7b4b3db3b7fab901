// Package obslog wraps log/slog with the engine's structured logging
// convention: package-level Info/Warn/Error/Debug calls with
// structured key-value attributes, JSON handler to stderr by default.
// This mirrors shoal/internal/database and shoal/internal/provisioner/
// config, which log through the slog default logger rather than a
// hand-rolled wrapper type.
package obslog

import (
	"log/slog"
	"os"
)

// New builds a JSON-handler *slog.Logger writing to stderr at the
// given level ("debug", "info", "warn", "error"; unrecognized values
// fall back to "info"), matching shoal/internal/logging.New's
// flag-driven level selection in cmd/shoal/main.go.
func New(level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
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

// Default returns logger if non-nil, else slog.Default(). The kitchen,
// the one component with an injectable *slog.Logger, calls it on every
// log call through Kitchen.logger, so a nil Logger field falls back to
// the default.
func Default(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
