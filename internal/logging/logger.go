package logging

import (
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

// NewLogger builds the JSON logger shared by the server and the worker.
func NewLogger(level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     levelFromString(level),
		AddSource: true,
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// Preview trims a payload for logging without splitting a UTF-8 sequence.
func Preview(b []byte, limit int) string {
	if len(b) <= limit {
		return string(b)
	}
	cut := max(limit, 0)
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}
	return string(b[:cut]) + "...(truncated)"
}

func levelFromString(level string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
