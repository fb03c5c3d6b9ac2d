// Package logging configures structured logging for sugicron.
//
// Logs are JSON lines on stdout so that journald and log shippers can parse
// them. Source locations are included and shortened to the path below the
// module root.
//
// Usage:
//
//	logger := logging.SetupLogger("info")
//	runnerLog := logging.WithComponent(logger, "runner")
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// SetupLogger creates the JSON logger writing to stdout at the given level
// and installs it as the slog default.
func SetupLogger(level string) *slog.Logger {
	logger := NewLogger(os.Stdout, level)
	slog.SetDefault(logger)
	return logger
}

// NewLogger creates a JSON logger writing to w. Unknown levels fall back
// to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(level),
		AddSource:   true,
		ReplaceAttr: shortenSource,
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// shortenSource trims source paths to start at internal/ or cmd/.
func shortenSource(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.SourceKey {
		return a
	}
	source, ok := a.Value.Any().(*slog.Source)
	if !ok {
		return a
	}
	source.File = trimToModule(source.File)
	if idx := strings.Index(source.Function, "internal/"); idx != -1 {
		source.Function = source.Function[idx:]
	}
	return a
}

func trimToModule(file string) string {
	for _, marker := range []string{"internal/", "cmd/"} {
		if idx := strings.Index(file, marker); idx != -1 {
			return file[idx:]
		}
	}
	return filepath.Base(file)
}

// ParseLevel maps "debug", "info", "warn"/"warning" and "error" (any case)
// to a slog level. Anything else is info.
func ParseLevel(level string) slog.Level {
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

// WithComponent tags every record of the returned logger with component.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}
