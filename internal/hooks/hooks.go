// Package hooks delivers job lifecycle callbacks (start, end, error) to
// interested sinks: the log, an HTTP webhook and a NATS subject.
//
// Hooks are notified by the runner around each job. A failing hook is
// logged by the runner and never stops other jobs or other hooks.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SugiPHP/Cron/internal/crontab"
	"github.com/SugiPHP/Cron/internal/executor"
)

// Kind is the lifecycle stage an Event reports.
type Kind string

const (
	KindStart Kind = "start"
	KindEnd   Kind = "end"
	KindError Kind = "error"
)

// ParseKind maps "start", "end" or "error" to its Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindStart, KindEnd, KindError:
		return k, nil
	}
	return "", fmt.Errorf("unknown event kind %q", s)
}

// Event is one lifecycle notification for a job.
type Event struct {
	Kind  Kind
	Entry crontab.Entry
	// ScheduledFor is the minute the entry was found due at.
	ScheduledFor time.Time
	// Result is set for KindEnd and, when the process ran, KindError.
	Result *executor.Result
	// Err is set for KindError.
	Err error
}

// Hook receives job lifecycle events.
type Hook interface {
	Notify(ctx context.Context, ev Event) error
}

// HookFunc adapts a plain function to Hook.
type HookFunc func(ctx context.Context, ev Event) error

// Notify calls f.
func (f HookFunc) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Callbacks maps each lifecycle stage to an optional function. Nil
// callbacks are skipped.
type Callbacks struct {
	OnStart func(ev Event)
	OnEnd   func(ev Event)
	OnError func(ev Event)
}

// Notify dispatches ev to the callback for its kind.
func (c Callbacks) Notify(_ context.Context, ev Event) error {
	var fn func(Event)
	switch ev.Kind {
	case KindStart:
		fn = c.OnStart
	case KindEnd:
		fn = c.OnEnd
	case KindError:
		fn = c.OnError
	}
	if fn != nil {
		fn(ev)
	}
	return nil
}

// Multi fans events out to several hooks in order.
type Multi []Hook

// Notify calls every hook, even after one fails, and joins their errors.
func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, h := range m {
		if h == nil {
			continue
		}
		if err := h.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Payload is the JSON document sent by the webhook and NATS hooks.
type Payload struct {
	Event        Kind      `json:"event"`
	Timestamp    string    `json:"timestamp"`
	Line         int       `json:"line,omitempty"`
	Schedule     string    `json:"schedule"`
	Command      string    `json:"command"`
	ScheduledFor time.Time `json:"scheduled_for"`
	ExitCode     *int      `json:"exit_code,omitempty"`
	DurationMs   int64     `json:"duration_ms,omitempty"`
	TimedOut     bool      `json:"timed_out,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// NewPayload flattens ev into its wire form.
func NewPayload(ev Event) Payload {
	p := Payload{
		Event:        ev.Kind,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Line:         ev.Entry.Line,
		Schedule:     ev.Entry.Schedule(),
		Command:      ev.Entry.Command,
		ScheduledFor: ev.ScheduledFor,
	}
	if ev.Result != nil {
		code := ev.Result.ExitCode
		p.ExitCode = &code
		p.DurationMs = ev.Result.Duration.Milliseconds()
		p.TimedOut = ev.Result.TimedOut
	}
	if ev.Err != nil {
		p.Error = ev.Err.Error()
	}
	return p
}
