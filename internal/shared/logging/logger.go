package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a slog.Logger configured for structured, JSON-oriented output.
// Records go to stderr so command output on stdout stays parseable.
func New(subsystem string) *slog.Logger {
	return NewWithWriter(os.Stderr, subsystem)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, subsystem string) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: LevelFromEnv()}
	var handler slog.Handler
	if strings.EqualFold(os.Getenv("SAFEPAW_LOG_FORMAT"), "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("subsystem", subsystem)
}

// LevelFromEnv reads SAFEPAW_LOG_LEVEL, defaulting to info.
func LevelFromEnv() slog.Level {
	return ParseLevel(os.Getenv("SAFEPAW_LOG_LEVEL"))
}

// ParseLevel maps debug/info/warn/error onto slog levels. Unknown values yield info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
