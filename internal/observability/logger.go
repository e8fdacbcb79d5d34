// Package observability wires up the pod process's structured logging,
// Prometheus metrics, and OpenTelemetry tracing, grounded on the teacher's
// internal/adapter/observability package.
package observability

import (
	"log/slog"
	"os"
	"strings"
)

// LogConfig is the subset of the ambient process configuration the logger
// needs.
type LogConfig struct {
	Env      string
	LogLevel string
	Service  string
}

// SetupLogger returns a JSON slog.Logger tagged with the pod's service name
// and environment, with the level taken from cfg.LogLevel (defaulting to
// info for an unrecognized value).
func SetupLogger(cfg LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(
		slog.String("service", cfg.Service),
		slog.String("env", cfg.Env),
	)
}
