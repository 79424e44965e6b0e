// Package log wraps log/slog behind the CLI verbosity levels.
//
// Output always goes to stderr by default: stdout is reserved for tool
// results and the MCP stdio transport.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Verbosity levels
const (
	LevelQuiet = iota // Default: only errors and warnings
	LevelInfo         // -v: invocations, counts, config reloads
	LevelDebug        // -vv: one line per upstream request, timing
	LevelTrace        // -vvv: queries and per-record details
)

// Custom slog levels mapped to our verbosity
const (
	slogLevelTrace = slog.Level(-8) // Below debug
)

var (
	mu        sync.RWMutex
	verbosity int
	logger    *slog.Logger
)

// Option configures Initialize.
type Option func(*options)

type options struct {
	json bool
}

// WithJSON switches the handler to slog's JSON encoding. Used by
// long-running serve mode where logs are shipped rather than read.
func WithJSON() Option {
	return func(o *options) {
		o.json = true
	}
}

// Initialize sets up the global logger with the specified verbosity level
func Initialize(level int, w io.Writer, opts ...Option) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// Map our verbosity to slog levels
	var slogLevel slog.Level
	switch {
	case level >= LevelTrace:
		slogLevel = slogLevelTrace
	case level >= LevelDebug:
		slogLevel = slog.LevelDebug
	case level >= LevelInfo:
		slogLevel = slog.LevelInfo
	default:
		slogLevel = slog.LevelWarn
	}

	handlerOpts := &slog.HandlerOptions{Level: slogLevel}
	var handler slog.Handler
	if o.json {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	mu.Lock()
	verbosity = level
	logger = slog.New(handler)
	mu.Unlock()
}

func current() (*slog.Logger, int) {
	mu.RLock()
	defer mu.RUnlock()
	return logger, verbosity
}

// Logger returns the process logger for libraries that accept a *slog.Logger.
func Logger() *slog.Logger {
	l, _ := current()
	return l
}

// With returns a child logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// Info logs at info level (-v)
func Info(msg string, args ...any) {
	if l, v := current(); v >= LevelInfo {
		l.Info(msg, args...)
	}
}

// Debug logs at debug level (-vv)
func Debug(msg string, args ...any) {
	if l, v := current(); v >= LevelDebug {
		l.Debug(msg, args...)
	}
}

// Trace logs at trace level (-vvv)
func Trace(msg string, args ...any) {
	if l, v := current(); v >= LevelTrace {
		l.Log(context.Background(), slogLevelTrace, msg, args...)
	}
}

// Warn logs at warn level (always visible)
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs at error level (always visible)
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// IsInfo returns true if info-level logging is enabled
func IsInfo() bool {
	return Verbosity() >= LevelInfo
}

// IsDebug returns true if debug-level logging is enabled
func IsDebug() bool {
	return Verbosity() >= LevelDebug
}

// IsTrace returns true if trace-level logging is enabled
func IsTrace() bool {
	return Verbosity() >= LevelTrace
}

// Verbosity returns the current verbosity level
func Verbosity() int {
	_, v := current()
	return v
}

func init() {
	// Default initialization with quiet mode to stderr
	Initialize(LevelQuiet, os.Stderr)
}
