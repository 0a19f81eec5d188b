package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/gamemaster-agent/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	logger := New(os.Stdout, cfg)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w: JSON in production, text elsewhere
func New(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// WithRequestID adds request ID to logger context
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// WithStory scopes a logger to one story and its owner
func WithStory(logger *slog.Logger, storyID, owner string) *slog.Logger {
	return logger.With("story_id", storyID, "owner", owner)
}
