package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values fall
// back to def.
func ParseLevel(l string, def slog.Level) slog.Level {
	switch strings.ToLower(l) {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "production", "prod":
		return slog.LevelError
	}
	return def
}

// New builds a logger writing to w. format is "json" or "text".
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Init installs the default logger for the client: text on stderr, errors
// only unless LOG_LEVEL says otherwise.
func Init() {
	level := ParseLevel(os.Getenv("LOG_LEVEL"), slog.LevelError)
	slog.SetDefault(New(os.Stderr, level, "text"))
}

// InitServer installs and returns the relay's default logger.
func InitServer(level, format string) *slog.Logger {
	logger := New(os.Stderr, ParseLevel(level, slog.LevelInfo), format)
	slog.SetDefault(logger)
	return logger
}
