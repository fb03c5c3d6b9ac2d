// Package runner drives crontab execution: once per minute it takes a
// snapshot of the clock, asks the matcher which entries are due and runs
// their commands through the executor.
//
// Each job is isolated: a failing or timed-out command is reported to the
// hooks and the journal and never affects the other jobs of the tick.
//
// Jobs run under a context owned by the runner, not the one passed to Tick
// or Run. Stopping the daemon therefore lets running jobs finish; only
// when the Shutdown deadline expires are they killed.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/SugiPHP/Cron/internal/crontab"
	"github.com/SugiPHP/Cron/internal/executor"
	"github.com/SugiPHP/Cron/internal/hooks"
	"github.com/SugiPHP/Cron/internal/journal"
	"github.com/SugiPHP/Cron/internal/logging"
)

// Commander runs one shell command. *executor.Executor satisfies it.
type Commander interface {
	Execute(ctx context.Context, command string, timeout time.Duration) (*executor.Result, error)
}

// Recorder stores finished runs. *journal.Journal satisfies it.
type Recorder interface {
	Append(r *journal.Record) error
}

// Clock returns the current time.
type Clock func() time.Time

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout sets the per-job timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithMaxParallel bounds how many jobs of one tick run at once.
// Values below 1 are treated as 1.
func WithMaxParallel(n int) Option {
	return func(r *Runner) { r.maxParallel = max(n, 1) }
}

// WithHook sets the lifecycle hook.
func WithHook(h hooks.Hook) Option {
	return func(r *Runner) { r.hook = h }
}

// WithRecorder sets where finished runs are journaled.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithClock replaces time.Now.
func WithClock(c Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// tickSpec fires at the start of every minute.
const tickSpec = "* * * * *"

// healthWindow is how stale the last tick may be before IsHealthy fails.
const healthWindow = 2 * time.Minute

// killWait bounds how long Shutdown waits for killed jobs to be reported.
const killWait = 2 * time.Second

// ErrCancelledAtShutdown is the error of a job killed because it outlived
// the shutdown grace period.
var ErrCancelledAtShutdown = errors.New("cancelled at shutdown")

// Runner executes due crontab entries every minute.
type Runner struct {
	schedule atomic.Pointer[crontab.Schedule]

	exec     Commander
	hook     hooks.Hook
	recorder Recorder
	logger   *slog.Logger
	clock    Clock

	timeout     time.Duration
	maxParallel int

	startedAt atomic.Int64
	lastTick  atomic.Int64

	jobCtx     context.Context
	cancelJobs context.CancelCauseFunc

	mu       sync.Mutex
	cron     *cronlib.Cron
	stopping bool
	ticks    sync.WaitGroup
}

// New creates a Runner for sched. Defaults: one hour timeout, four jobs in
// parallel, no hook, no journal, time.Now.
func New(sched *crontab.Schedule, exec Commander, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		exec:        exec,
		logger:      logging.WithComponent(logger, "runner"),
		clock:       time.Now,
		timeout:     time.Hour,
		maxParallel: 4,
	}
	r.jobCtx, r.cancelJobs = context.WithCancelCause(context.Background())
	for _, opt := range opts {
		opt(r)
	}
	r.SetSchedule(sched)
	return r
}

// SetSchedule swaps the active schedule. Ticks already in progress keep
// the schedule they started with.
func (r *Runner) SetSchedule(sched *crontab.Schedule) {
	if sched == nil {
		sched = &crontab.Schedule{}
	}
	r.schedule.Store(sched)
	r.logger.Info("schedule loaded", slog.Int("entries", len(sched.Entries)))
}

// Schedule returns the active schedule.
func (r *Runner) Schedule() *crontab.Schedule {
	return r.schedule.Load()
}

// Tick runs every entry due at now and waits for them to finish.
// It returns the due entries in crontab order.
//
// Cancelling ctx stops Tick from starting further jobs. Jobs already
// started keep running until they exit or Shutdown gives up on them.
// After Shutdown, Tick does nothing.
func (r *Runner) Tick(ctx context.Context, now time.Time) []crontab.Entry {
	r.mu.Lock()
	if r.stopping {
		r.mu.Unlock()
		return nil
	}
	r.ticks.Add(1)
	r.mu.Unlock()
	defer r.ticks.Done()

	r.lastTick.Store(now.Unix())

	snap := crontab.NewSnapshot(now)
	due := crontab.DueEntries(r.Schedule().Entries, snap)
	if len(due) == 0 {
		r.logger.Debug("no due entries", slog.Time("minute", snap.Time))
		return nil
	}

	r.logger.Info("found due entries",
		slog.Time("minute", snap.Time),
		slog.Int("count", len(due)),
	)

	sem := make(chan struct{}, r.maxParallel)
	var wg sync.WaitGroup
	for _, entry := range due {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			r.logger.Warn("tick cancelled before all jobs started",
				slog.Int("line", entry.Line),
				slog.String("command", entry.Command),
			)
			wg.Wait()
			return due
		}

		wg.Add(1)
		go func(entry crontab.Entry) {
			defer func() {
				<-sem
				wg.Done()
			}()
			r.runJob(entry, snap.Time)
		}(entry)
	}
	wg.Wait()

	return due
}

// runJob executes a single entry and reports the outcome.
func (r *Runner) runJob(entry crontab.Entry, minute time.Time) {
	ctx := r.jobCtx
	// Hooks still need to deliver the final event of a killed job.
	notifyCtx := context.WithoutCancel(ctx)

	jobLogger := r.logger.With(
		slog.Int("line", entry.Line),
		slog.String("command", entry.Command),
	)

	r.notify(notifyCtx, jobLogger, hooks.Event{Kind: hooks.KindStart, Entry: entry, ScheduledFor: minute})

	startedAt := r.clock()
	result, err := r.exec.Execute(ctx, entry.Command, r.timeout)

	record := &journal.Record{
		Line:         entry.Line,
		Schedule:     entry.Schedule(),
		Command:      entry.Command,
		ScheduledFor: minute,
		StartedAt:    startedAt,
		ExitCode:     -1,
	}

	ev := hooks.Event{Entry: entry, ScheduledFor: minute, Result: result}
	switch {
	case ctx.Err() != nil && (err != nil || result.ExitCode != 0):
		ev.Kind = hooks.KindError
		ev.Err = context.Cause(ctx)
		record.Error = ev.Err.Error()
	case err != nil:
		ev.Kind = hooks.KindError
		ev.Err = err
		record.Error = err.Error()
	case result.TimedOut:
		ev.Kind = hooks.KindError
		ev.Err = fmt.Errorf("timed out after %s", r.timeout)
		record.Error = ev.Err.Error()
	case result.ExitCode != 0:
		ev.Kind = hooks.KindError
		ev.Err = fmt.Errorf("exit code %d", result.ExitCode)
		record.Error = ev.Err.Error()
	default:
		ev.Kind = hooks.KindEnd
	}

	if result != nil {
		record.StartedAt = result.StartedAt
		record.ExitCode = result.ExitCode
		record.TimedOut = result.TimedOut
		record.DurationMs = result.Duration.Milliseconds()
	}

	r.notify(notifyCtx, jobLogger, ev)

	if r.recorder != nil {
		if err := r.recorder.Append(record); err != nil {
			jobLogger.Error("failed to journal run", slog.String("error", err.Error()))
		}
	}
}

func (r *Runner) notify(ctx context.Context, logger *slog.Logger, ev hooks.Event) {
	if r.hook == nil {
		return
	}
	if err := r.hook.Notify(ctx, ev); err != nil {
		logger.Warn("hook failed",
			slog.String("event", string(ev.Kind)),
			slog.String("error", err.Error()),
		)
	}
}

// Run ticks at the start of every minute until ctx is cancelled.
// It blocks; call it in a goroutine.
func (r *Runner) Run(ctx context.Context) error {
	c := cronlib.New(
		cronlib.WithLocation(time.Local),
		cronlib.WithLogger(cronLogger{r.logger}),
	)
	if _, err := c.AddFunc(tickSpec, func() { r.Tick(ctx, r.clock()) }); err != nil {
		return fmt.Errorf("failed to register tick: %w", err)
	}

	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()

	r.startedAt.Store(r.clock().Unix())
	c.Start()
	r.logger.Info("runner started",
		slog.Duration("job_timeout", r.timeout),
		slog.Int("max_parallel", r.maxParallel),
	)

	<-ctx.Done()
	r.logger.Info("runner stopping")
	c.Stop()
	return nil
}

// IsHealthy reports whether the runner has ticked recently. A runner that
// has not been started yet is considered healthy.
func (r *Runner) IsHealthy() bool {
	last := r.lastTick.Load()
	if last == 0 {
		last = r.startedAt.Load()
	}
	if last == 0 {
		return true
	}
	return r.clock().Sub(time.Unix(last, 0)) <= healthWindow
}

// Shutdown stops scheduling new ticks and waits for the jobs of running
// ticks until ctx expires. Jobs still running then are killed and reported
// with ErrCancelledAtShutdown.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.stopping = true
	c := r.cron
	r.mu.Unlock()
	if c != nil {
		c.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.ticks.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancelJobs(nil)
		r.logger.Info("runner shutdown complete")
		return nil
	case <-ctx.Done():
	}

	r.logger.Warn("grace period expired, killing running jobs")
	r.cancelJobs(ErrCancelledAtShutdown)
	select {
	case <-done:
	case <-time.After(killWait):
		r.logger.Error("jobs did not exit after kill")
	}
	return fmt.Errorf("%w: %w", ErrCancelledAtShutdown, ctx.Err())
}

// cronLogger routes robfig/cron's internal logging into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
