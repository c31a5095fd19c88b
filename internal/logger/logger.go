// Package logger builds the structured slog loggers used across the
// tinysummary service.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log format names accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures a logger.
type Options struct {
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string
	// Format is text or json.
	Format string
	// Output defaults to stderr; stdout is reserved for the MCP stdio transport.
	Output io.Writer
	// Service is attached to every record when set.
	Service string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Level:   "info",
		Format:  FormatText,
		Output:  os.Stderr,
		Service: "tinysummary",
	}
}

// New creates a slog.Logger from opts.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, FormatJSON) {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	l := slog.New(handler)
	if opts.Service != "" {
		l = l.With("service", opts.Service)
	}
	return l
}

// ParseLevel converts a string level to a slog.Level
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetDefault builds a logger from opts and installs it as the slog default.
func SetDefault(opts Options) *slog.Logger {
	l := New(opts)
	slog.SetDefault(l)
	return l
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
