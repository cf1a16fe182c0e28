package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for request ID.
	RequestIDKey contextKey = "request_id"
	// OperatorKey is the context key for the authenticated operator subject.
	OperatorKey contextKey = "operator"
)

// Logger is a structured logger wrapper around slog
type Logger struct {
	*slog.Logger
}

// secretKeys are attribute keys whose values never reach the log output.
var secretKeys = map[string]bool{
	"private_key":        true,
	"signer_private_key": true,
	"jwt":                true,
	"pinata_jwt":         true,
	"authorization":      true,
	"token":              true,
}

const redacted = "[redacted]"

// New creates a logger for env; LOG_FORMAT=json switches development output to JSON.
func New(env string, output io.Writer) *Logger {
	return NewWithFormat(env, os.Getenv("LOG_FORMAT"), output)
}

// NewWithFormat creates a logger with an explicit format override.
// Production is JSON at INFO; anything else logs DEBUG in text unless logFormat is "json".
func NewWithFormat(env, logFormat string, output io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		AddSource:   true,
		ReplaceAttr: rewriteAttr,
	}

	var handler slog.Handler
	switch {
	case env == "production":
		opts.Level = slog.LevelInfo
		handler = slog.NewJSONHandler(output, opts)
	case logFormat == "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// NewDefault creates a logger writing to stdout
func NewDefault(env string) *Logger {
	return New(env, os.Stdout)
}

// rewriteAttr formats time as RFC3339, trims source to file:line and masks secrets.
func rewriteAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.Format(time.RFC3339))
		}
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok {
			a.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	default:
		if secretKeys[strings.ToLower(a.Key)] {
			a.Value = slog.StringValue(redacted)
		}
	}
	return a
}

// WithContext adds context fields to the logger
func (l *Logger) WithContext(ctx context.Context) *Logger {
	result := l
	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		result = &Logger{Logger: result.With("request_id", requestID)}
	}
	if operator := ctx.Value(OperatorKey); operator != nil {
		result = &Logger{Logger: result.With("operator", operator)}
	}
	return result
}

// WithField creates a new logger with an additional field
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{
		Logger: l.With(key, value),
	}
}

// WithError creates a new logger with an error field
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.With("error", err.Error()),
	}
}

// WithFlow scopes the logger to one orchestrated write flow
func (l *Logger) WithFlow(name string, battleID int64) *Logger {
	return &Logger{
		Logger: l.With("flow", name, "battle_id", battleID),
	}
}
