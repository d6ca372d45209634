package annkit

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hupe1980/annkit/config"
)

// Logger wraps slog.Logger with annkit-specific context.
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
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// NewLoggerFromConfig creates a Logger writing to w with the configured
// level and format.
func NewLoggerFromConfig(w io.Writer, cfg config.Config) (*Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return NewLogger(slog.NewJSONHandler(w, opts)), nil
	}
	return NewLogger(slog.NewTextHandler(w, opts)), nil
}

// WithKey adds the algorithm key fields to the logger.
func (l *Logger) WithKey(key Key) *Logger {
	return &Logger{
		Logger: l.Logger.With("algorithm", key.Name, "element_type", key.ElementType.String()),
	}
}

// WithLimit adds a concurrency limit field to the logger.
func (l *Logger) WithLimit(limit int) *Logger {
	return &Logger{
		Logger: l.Logger.With("limit", limit),
	}
}

// LogRegister logs a registration.
func (l *Logger) LogRegister(ctx context.Context, key Key, limit int, err error) {
	if err != nil {
		l.WarnContext(ctx, "register failed",
			"algorithm", key.Name,
			"element_type", key.ElementType.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "registered",
			"algorithm", key.Name,
			"element_type", key.ElementType.String(),
			"limit", limit,
		)
	}
}

// LogLookup logs a failed lookup. Successful lookups are not logged.
func (l *Logger) LogLookup(ctx context.Context, key Key, err error) {
	if err != nil {
		l.DebugContext(ctx, "lookup failed",
			"algorithm", key.Name,
			"element_type", key.ElementType.String(),
			"error", err,
		)
	}
}

// LogBootstrap logs the outcome of a bootstrap run.
func (l *Logger) LogBootstrap(ctx context.Context, registered, failed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "bootstrap completed with failures",
			"registered", registered,
			"failed", failed,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "bootstrap completed",
			"registered", registered,
		)
	}
}
