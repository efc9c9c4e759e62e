package logging

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"time"
)

// NewLogger creates a structured logger for the given service name.
// Logs always go to stderr so stdio MCP transport stays clean.
func NewLogger(service string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339))
				}
			}
			if a.Key == slog.SourceKey {
				if src, ok := a.Value.Any().(*slog.Source); ok {
					a.Value = slog.StringValue(src.File + ":" + strconv.Itoa(src.Line))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if os.Getenv("ENV") == "production" || os.Getenv("LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler).With(
		slog.String("service", service),
		slog.Int("pid", os.Getpid()),
		slog.String("go_version", runtime.Version()),
	)
}

// GetLogLevel returns the log level from the environment.
func GetLogLevel() slog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" && os.Getenv("DEBUG") == "true" {
		return slog.LevelDebug
	}

	switch levelStr {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "info", "INFO":
		return slog.LevelInfo
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
