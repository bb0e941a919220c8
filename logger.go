package regnet

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with regnet-specific context.
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
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithRank adds the rank field to the logger.
func (l *Logger) WithRank(rank int) *Logger {
	return &Logger{
		Logger: l.Logger.With("rank", rank),
	}
}

// WithOrdinal adds the bootstrap ordinal field to the logger.
func (l *Logger) WithOrdinal(ordinal int) *Logger {
	return &Logger{
		Logger: l.Logger.With("ordinal", ordinal),
	}
}

// LogBootstrap logs the completion of one bootstrap.
func (l *Logger) LogBootstrap(ctx context.Context, ordinal, chunks int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "bootstrap failed",
			"ordinal", ordinal,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "bootstrap completed",
			"ordinal", ordinal,
			"chunks", chunks,
			"duration", duration,
		)
	}
}

// LogRun logs the completion of a full run.
func (l *Logger) LogRun(ctx context.Context, bootstraps int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "run failed",
			"bootstraps", bootstraps,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "run completed",
			"bootstraps", bootstraps,
			"duration", duration,
		)
	}
}

// LogTrim logs a gene-trimming pass on the input data.
func (l *Logger) LogTrim(ctx context.Context, before, after int) {
	l.DebugContext(ctx, "genes trimmed",
		"before", before,
		"after", after,
		"removed", before-after,
	)
}
