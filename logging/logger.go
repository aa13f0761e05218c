package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a configuration string into a LogLevel. Unknown values
// fall back to LogLevelInfo.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger defines the minimal logging interface for agentmux.
// This allows users to provide their own logger implementation or use the built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextBinder is implemented by loggers that can attach a request context
// to every record, e.g. to correlate log lines with the active trace.
type ContextBinder interface {
	WithContext(ctx context.Context) Logger
}

// Bind returns l bound to ctx when l supports it, otherwise l itself.
// A nil logger becomes a NoOpLogger.
func Bind(l Logger, ctx context.Context) Logger {
	if l == nil {
		return NoOpLogger{}
	}

	if b, ok := l.(ContextBinder); ok {
		return b.WithContext(ctx)
	}

	return l
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
	ctx context.Context
}

func (s *SlogAdapter) context() context.Context {
	if s.ctx == nil {
		return context.Background()
	}

	return s.ctx
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) {
	s.Logger.Log(s.context(), slog.LevelDebug, msg, args...)
}

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) {
	s.Logger.Log(s.context(), slog.LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) {
	s.Logger.Log(s.context(), slog.LevelWarn, msg, args...)
}

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) {
	s.Logger.Log(s.context(), slog.LevelError, msg, args...)
}

// WithContext implements ContextBinder.
func (s *SlogAdapter) WithContext(ctx context.Context) Logger {
	return &SlogAdapter{Logger: s.Logger, ctx: ctx}
}

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// NewSlogLogger builds a trace-aware slog Logger writing json (default) or
// text records to output (os.Stderr when nil).
func NewSlogLogger(level LogLevel, format string, output io.Writer, addSource bool) Logger {
	return NewSlogAdapter(slog.New(NewHandler(level, format, output, addSource)))
}

// NewHandler builds the slog.Handler used by NewSlogLogger so callers can
// also install it as the process default.
func NewHandler(level LogLevel, format string, output io.Writer, addSource bool) slog.Handler {
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: slogLevel(level), AddSource: addSource}

	var base slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		base = slog.NewTextHandler(output, opts)
	} else {
		base = slog.NewJSONHandler(output, opts)
	}

	return &traceHandler{next: base}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}
