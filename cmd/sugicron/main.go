// sugicron - crontab scheduler daemon
//
// sugicron reads a crontab file, wakes at the start of every minute and runs
// each entry whose five time fields match the current local time through the
// configured shell. Job start, end and failure are reported to the log and,
// optionally, to a webhook and a NATS subject; finished runs can be kept in a
// bbolt journal.
//
// Configuration is loaded from /etc/sugicron/config.yaml (or the path given
// with -config).
//
// Lifecycle:
//  1. Load configuration and set up the JSON logger
//  2. Load the crontab, reporting rejected lines
//  3. Open the journal and connect the event sinks
//  4. Notify systemd that the service is ready and start the watchdog
//  5. Tick every minute; SIGHUP reloads the crontab
//  6. On SIGTERM/SIGINT, notify systemd and shut down in order
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/SugiPHP/Cron/internal/config"
	"github.com/SugiPHP/Cron/internal/crontab"
	"github.com/SugiPHP/Cron/internal/executor"
	"github.com/SugiPHP/Cron/internal/hooks"
	"github.com/SugiPHP/Cron/internal/journal"
	"github.com/SugiPHP/Cron/internal/logging"
	"github.com/SugiPHP/Cron/internal/runner"
	"github.com/SugiPHP/Cron/internal/shutdown"
	"github.com/SugiPHP/Cron/internal/systemd"
	"github.com/SugiPHP/Cron/internal/version"
)

// shutdownTimeout bounds the whole coordinated shutdown.
const shutdownTimeout = 30 * time.Second

// jobGracePeriod is how long running jobs get to finish before they are
// killed. The rest of shutdownTimeout is left for flushing the sinks.
const jobGracePeriod = 25 * time.Second

// dueLayout is the -due time format, read in the local time zone.
const dueLayout = "2006-01-02 15:04"

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	check := flag.Bool("check", false, "validate the crontab and exit")
	due := flag.String("due", "", `print the commands due at "YYYY-MM-DD HH:MM" local time and exit`)
	history := flag.Int("history", 0, "print the last N journaled runs and exit")
	printConfig := flag.Bool("print-config", false, "print the effective configuration and exit")
	writeConfig := flag.String("write-config", "", "write the effective configuration to `path` and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to load configuration from %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	switch {
	case *printConfig:
		os.Exit(runPrintConfig(os.Stdout, cfg))
	case *writeConfig != "":
		os.Exit(runWriteConfig(cfg, *writeConfig))
	case *check:
		os.Exit(runCheck(os.Stdout, cfg))
	case *due != "":
		os.Exit(runDue(os.Stdout, cfg, *due))
	case *history > 0:
		os.Exit(runHistory(os.Stdout, cfg, *history))
	}

	os.Exit(runDaemon(cfg, *configPath))
}

func runPrintConfig(w io.Writer, cfg *config.Config) int {
	data, err := config.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	w.Write(data)
	return 0
}

// runWriteConfig saves cfg with its defaults filled in, for example to
// turn a minimal config into a fully spelled out one.
func runWriteConfig(cfg *config.Config, path string) int {
	if err := config.Save(path, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	return 0
}

// runCheck loads the crontab strictly enough to report every bad line,
// regardless of on_parse_error.
func runCheck(w io.Writer, cfg *config.Config) int {
	opts := cfg.LoadOptions()
	opts.Policy = crontab.PolicySkip

	res, err := crontab.LoadFile(cfg.Crontab, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	for _, synErr := range res.Errors {
		fmt.Fprintf(w, "%s:%d: %v\n", cfg.Crontab, synErr.Line, synErr)
	}
	fmt.Fprintf(w, "%d entries, %d errors\n", len(res.Entries), len(res.Errors))
	if res.Err() != nil {
		return 2
	}
	return 0
}

func runDue(w io.Writer, cfg *config.Config, at string) int {
	t, err := time.ParseInLocation(dueLayout, at, time.Local)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: invalid -due time %q (want %s): %v\n", at, dueLayout, err)
		return 1
	}

	res, err := crontab.LoadFile(cfg.Crontab, cfg.LoadOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	for _, e := range res.Schedule().Due(t) {
		fmt.Fprintf(w, "%d\t%s\t%s\n", e.Line, e.Schedule(), e.Command)
	}
	return 0
}

func runHistory(w io.Writer, cfg *config.Config, n int) int {
	if !cfg.JournalEnabled() {
		fmt.Fprintln(os.Stderr, "ERROR: journal_path is not configured")
		return 1
	}
	j, err := journal.Open(cfg.JournalPath, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	defer j.Close()

	total, err := j.Count()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	records, err := j.Recent(n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	fmt.Fprintf(w, "%d of %d journaled runs\n", len(records), total)
	for _, r := range records {
		status := "ok"
		if r.Failed() {
			switch {
			case r.TimedOut:
				status = "timeout"
			case r.ExitCode > 0:
				status = fmt.Sprintf("exit %d", r.ExitCode)
			default:
				status = "error: " + r.Error
			}
		}
		fmt.Fprintf(w, "%s\t%6dms\t%s\t%s\t%s\n",
			r.ScheduledFor.Local().Format(dueLayout), r.DurationMs, r.Schedule, r.Command, status)
	}
	return 0
}

// statusHook keeps a running tally of finished jobs and reports it through
// report, which in the daemon is the systemd status line.
func statusHook(report func(string) bool) hooks.Callbacks {
	var ran, failed atomic.Int64
	update := func() {
		report(fmt.Sprintf("%d jobs run, %d failed", ran.Load(), failed.Load()))
	}
	return hooks.Callbacks{
		OnEnd: func(hooks.Event) {
			ran.Add(1)
			update()
		},
		OnError: func(hooks.Event) {
			ran.Add(1)
			failed.Add(1)
			update()
		},
	}
}

// loadSchedule loads the crontab and logs every rejected line.
func loadSchedule(cfg *config.Config, logger *slog.Logger) (*crontab.Schedule, error) {
	res, err := crontab.LoadFile(cfg.Crontab, cfg.LoadOptions())
	if err != nil {
		return nil, err
	}
	for _, synErr := range res.Errors {
		logger.Warn("skipping crontab line",
			slog.Int("line", synErr.Line),
			slog.String("error", synErr.Error()),
		)
	}
	logger.Info("crontab loaded",
		slog.String("path", cfg.Crontab),
		slog.Int("entries", len(res.Entries)),
		slog.Int("rejected", len(res.Errors)),
	)
	return res.Schedule(), nil
}

func runDaemon(cfg *config.Config, configPath string) int {
	logger := logging.SetupLogger(cfg.LogLevel)

	logger.Info("sugicron starting",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("build_time", version.BuildTime),
		slog.String("config_path", configPath),
		slog.String("crontab", cfg.Crontab),
		slog.String("shell", cfg.Shell),
	)

	shellPath, err := executor.ResolveShell(cfg.Shell)
	if err != nil {
		logger.Error("failed to resolve shell", slog.String("error", err.Error()))
		return 1
	}

	sched, err := loadSchedule(cfg, logger)
	if err != nil {
		logger.Error("failed to load crontab", slog.String("error", err.Error()))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	coordinator := shutdown.NewCoordinator(logger)

	sinks := hooks.Multi{hooks.NewLog(logger), statusHook(systemd.NotifyStatus)}
	opts := []runner.Option{
		runner.WithTimeout(cfg.Timeout()),
		runner.WithMaxParallel(cfg.MaxParallel),
	}

	if cfg.JournalEnabled() {
		j, err := journal.Open(cfg.JournalPath, cfg.JournalKeep)
		if err != nil {
			logger.Error("failed to open journal", slog.String("error", err.Error()))
			return 1
		}
		if err := j.Prune(cfg.JournalKeep); err != nil {
			logger.Warn("failed to prune journal", slog.String("error", err.Error()))
		}
		coordinator.Register("journal", shutdown.Closer(j))
		opts = append(opts, runner.WithRecorder(j))
		logger.Info("journal enabled",
			slog.String("path", cfg.JournalPath),
			slog.Int("keep", cfg.JournalKeep),
		)
	}

	if cfg.WebhookURL != "" {
		sinks = append(sinks, hooks.NewWebhook(cfg.WebhookURL, logger, hooks.WithKinds(cfg.WebhookKinds()...)))
		logger.Info("webhook enabled",
			slog.String("url", cfg.WebhookURL),
			slog.Any("events", cfg.WebhookEvents),
		)
	}

	if cfg.NATSEnabled() {
		hostname, _ := os.Hostname()
		nh, err := hooks.ConnectNATS(hooks.NATSConfig{
			Servers:  cfg.NATSServers,
			NKeySeed: cfg.NATSNKeySeed,
			Subject:  cfg.NATSSubject,
			Name:     "sugicron@" + hostname,
		}, logger)
		if err != nil {
			// Events are best-effort; keep scheduling without NATS.
			logger.Warn("NATS unavailable, continuing without it", slog.String("error", err.Error()))
		} else {
			coordinator.Register("nats", nh)
			sinks = append(sinks, nh)
		}
	}

	opts = append(opts, runner.WithHook(sinks))

	exec := executor.New(shellPath)
	exec.Env = cfg.Environ()
	r := runner.New(sched, exec, logger, opts...)
	coordinator.Register("runner", shutdown.Func(func(ctx context.Context) error {
		graceCtx, cancel := context.WithTimeout(ctx, jobGracePeriod)
		defer cancel()
		return r.Shutdown(graceCtx)
	}))

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

	runErr := make(chan error, 1)
	go func() { runErr <- r.Run(ctx) }()

	systemd.NotifyReady()
	systemd.StartWatchdog(ctx, r.IsHealthy)
	logger.Info("sugicron ready", slog.Int("shutdown_components", coordinator.Len()))

	exit := 0
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-reload:
			systemd.NotifyReloading()
			if next, err := loadSchedule(cfg, logger); err != nil {
				logger.Error("reload failed, keeping current crontab", slog.String("error", err.Error()))
			} else {
				r.SetSchedule(next)
			}
			systemd.NotifyReady()
		case err := <-runErr:
			if err != nil {
				logger.Error("runner failed", slog.String("error", err.Error()))
				exit = 1
			}
			stop()
			break loop
		}
	}

	logger.Info("shutdown signal received, starting graceful shutdown")
	systemd.NotifyStopping()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := coordinator.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		exit = 1
	}

	logger.Info("shutdown complete")
	return exit
}
