// Package logging provides structured logging for the submission pipeline
// on top of log/slog. Beyond the usual leveled methods it carries the event
// contract the rest of the core emits against: every recoverable anomaly
// (config rejection, token failure, throttle rejection, storage health
// failure) becomes one Event call with a stable code and a metadata map.
// The sink is pluggable; the core never depends on its implementation.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Severity levels accepted by Event.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Logger is the structured logging surface used throughout the core.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, err error, msg string, fields ...any)
	Error(ctx context.Context, err error, msg string, fields ...any)

	// Event records one operational event with a stable code and an
	// arbitrary metadata map.
	Event(severity Severity, code string, meta map[string]any)

	With(fields ...any) Logger
	WithComponent(component string) Logger
}

// Config holds logger construction options.
type Config struct {
	Level     slog.Level
	Format    string // "json" or "text"
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  slog.LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// EformsLogger implements Logger on a slog backend.
type EformsLogger struct {
	logger    *slog.Logger
	component string
}

// New creates a structured logger.
func New(cfg *Config) *EformsLogger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}
	l := slog.New(handler)
	if cfg.Component != "" {
		l = l.With("component", cfg.Component)
	}
	return &EformsLogger{logger: l, component: cfg.Component}
}

func (l *EformsLogger) Debug(ctx context.Context, msg string, fields ...any) {
	l.logger.DebugContext(ctx, msg, fields...)
}

func (l *EformsLogger) Info(ctx context.Context, msg string, fields ...any) {
	l.logger.InfoContext(ctx, msg, fields...)
}

func (l *EformsLogger) Warn(ctx context.Context, err error, msg string, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	l.logger.WarnContext(ctx, msg, fields...)
}

func (l *EformsLogger) Error(ctx context.Context, err error, msg string, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	l.logger.ErrorContext(ctx, msg, fields...)
}

// Event implements the operational event contract. Metadata keys become
// structured attributes; the code is always present under "code".
func (l *EformsLogger) Event(severity Severity, code string, meta map[string]any) {
	fields := make([]any, 0, 2*len(meta)+4)
	fields = append(fields, "code", code, "ts", time.Now().UTC().Format(time.RFC3339))
	for k, v := range meta {
		fields = append(fields, k, v)
	}
	switch severity {
	case SeverityError:
		l.logger.Error("event", fields...)
	case SeverityWarning:
		l.logger.Warn("event", fields...)
	default:
		l.logger.Info("event", fields...)
	}
}

func (l *EformsLogger) With(fields ...any) Logger {
	return &EformsLogger{logger: l.logger.With(fields...), component: l.component}
}

func (l *EformsLogger) WithComponent(component string) Logger {
	return &EformsLogger{
		logger:    l.logger.With("component", component),
		component: component,
	}
}

// Nop returns a logger that discards everything. Used in tests and as the
// fallback when no sink is configured; the core must keep working when
// logging is absent.
func Nop() Logger {
	return New(&Config{Level: slog.LevelError + 128, Output: io.Discard})
}
