package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates the process logger. Format "json" emits Cloud Logging
// compatible records (severity, message); anything else emits text.
func New(level, format string) *slog.Logger {
	return slog.New(NewHandler(os.Stdout, level, format))
}

func NewHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: levelFromString(level)}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		opts.ReplaceAttr = cloudKeys
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// FormatFor picks the default format for an environment.
func FormatFor(environment, format string) string {
	if format != "" {
		return format
	}
	if environment == "development" {
		return "text"
	}
	return "json"
}

func cloudKeys(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.LevelKey:
		a.Key = "severity"
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == slog.LevelWarn {
			a.Value = slog.StringValue("WARNING")
		}
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
