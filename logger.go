package unichrome

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with unichrome-specific construction helpers.
type Logger struct {
	*slog.Logger
}

// NewLogger wraps handler, or a text handler to stderr at info level if nil.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON to stderr at level.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NewTextLogger creates a Logger that writes human-readable text to stderr
// at level.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(1000)})
	return &Logger{Logger: slog.New(handler)}
}

// LogInsert logs a single document insert.
func (l *Logger) LogInsert(ctx context.Context, id int32, dimension int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed", "id", id, "dimension", dimension, "error", err)
	} else {
		l.DebugContext(ctx, "insert completed", "id", id, "dimension", dimension)
	}
}

// LogBatchInsert logs a batch insert.
func (l *Logger) LogBatchInsert(ctx context.Context, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch insert failed", "count", count, "error", err)
	} else {
		l.InfoContext(ctx, "batch insert completed", "count", count)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed", "k", k, "error", err)
	} else {
		l.DebugContext(ctx, "search completed", "k", k, "results", resultsFound)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, id int32, found bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed", "id", id, "error", err)
	} else {
		l.DebugContext(ctx, "delete completed", "id", id, "found", found)
	}
}

// LogUpdate logs an update operation.
func (l *Logger) LogUpdate(ctx context.Context, id int32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "update failed", "id", id, "error", err)
	} else {
		l.DebugContext(ctx, "update completed", "id", id)
	}
}

// LogPersist logs a persist operation.
func (l *Logger) LogPersist(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "persist failed", "collection", name, "error", err)
	} else {
		l.InfoContext(ctx, "persist completed", "collection", name)
	}
}
