package vecbuild

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vecbuild-specific context.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithIndex adds an index name field to the logger.
func (l *Logger) WithIndex(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("index", name),
	}
}

// WithColumn adds a column field to the logger.
func (l *Logger) WithColumn(column string) *Logger {
	return &Logger{
		Logger: l.Logger.With("column", column),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// LogTrainStage logs progress of one training stage.
func (l *Logger) LogTrainStage(ctx context.Context, stage string, done, total int) {
	l.InfoContext(ctx, "training progress",
		"stage", stage,
		"done", done,
		"total", total,
	)
}

// LogCreateIndex logs the outcome of an index construction.
func (l *Logger) LogCreateIndex(ctx context.Context, name string, numVectors int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "create index failed",
			"index", name,
			"vectors", numVectors,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "create index completed",
			"index", name,
			"vectors", numVectors,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogPersist logs a save or load operation.
func (l *Logger) LogPersist(ctx context.Context, op, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "persist failed",
			"op", op,
			"index", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "persist completed",
			"op", op,
			"index", name,
		)
	}
}
