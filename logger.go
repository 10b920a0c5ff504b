package ragfmt

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with ragfmt-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithQueryMode adds a query_mode field to the logger.
func (l *Logger) WithQueryMode(mode string) *Logger {
	return &Logger{
		Logger: l.Logger.With("query_mode", mode),
	}
}

// WithComponent adds a component field to the logger.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", name),
	}
}

// LogNormalize logs a normalization call.
func (l *Logger) LogNormalize(ctx context.Context, mode string, info ProcessingInfo, err error) {
	if err != nil {
		l.ErrorContext(ctx, "normalize failed",
			"query_mode", mode,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "normalize completed",
		"query_mode", mode,
		"entities", info.TotalEntities,
		"relations", info.TotalRelations,
		"chunks", info.TotalChunks,
		"references", info.TotalReferences,
		"extra_fields", len(info.ExtraFields),
	)
}

// LogBatch logs a batch normalization.
func (l *Logger) LogBatch(ctx context.Context, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch normalize failed",
			"count", count,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "batch normalize completed",
		"count", count,
	)
}

// LogArchive logs an archive operation.
func (l *Logger) LogArchive(ctx context.Context, op, key string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "archive "+op+" failed",
			"key", key,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "archive "+op+" completed",
		"key", key,
		"bytes", size,
	)
}
