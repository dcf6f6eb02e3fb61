package app

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process logger from configuration. Production always
// logs JSON; elsewhere LOG_FORMAT picks the handler. Source locations are
// attached outside production, where the extra cost is irrelevant.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     logLevel(cfg),
		AddSource: cfg == nil || !cfg.IsProduction(),
	}
	if cfg != nil && (cfg.IsProduction() || cfg.LogFormat == "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func logLevel(cfg *Config) slog.Level {
	if cfg == nil {
		return slog.LevelInfo
	}
	switch strings.ToLower(cfg.LogLevel) {
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
