// log.go writes job lifecycle events to the structured log.
package hooks

import (
	"context"
	"log/slog"

	"github.com/SugiPHP/Cron/internal/logging"
)

// Log writes lifecycle events to a structured logger. Starts are logged at
// debug, completions at info, failures at warn.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a logging hook.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logging.WithComponent(logger, "jobs")}
}

// Notify logs ev.
func (l *Log) Notify(ctx context.Context, ev Event) error {
	attrs := []any{
		slog.Int("line", ev.Entry.Line),
		slog.String("command", ev.Entry.Command),
	}
	if ev.Result != nil {
		attrs = append(attrs,
			slog.Int("exit_code", ev.Result.ExitCode),
			slog.Bool("timed_out", ev.Result.TimedOut),
			slog.Duration("duration", ev.Result.Duration),
		)
	}

	switch ev.Kind {
	case KindStart:
		l.logger.DebugContext(ctx, "job started", attrs...)
	case KindEnd:
		l.logger.InfoContext(ctx, "job finished", attrs...)
	case KindError:
		if ev.Err != nil {
			attrs = append(attrs, slog.String("error", ev.Err.Error()))
		}
		l.logger.WarnContext(ctx, "job failed", attrs...)
	}
	return nil
}
