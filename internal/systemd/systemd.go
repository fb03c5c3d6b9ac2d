// Package systemd integrates sugicron with a Type=notify systemd unit:
// READY/STOPPING notifications and watchdog pings gated on runner health.
//
// Every function is a no-op when the process is not running under systemd.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// notify sends state and reports whether systemd received it.
func notify(state string) bool {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		slog.Warn("failed to send systemd notification",
			slog.String("state", state),
			slog.String("error", err.Error()),
		)
		return false
	}
	return sent
}

// NotifyReady tells systemd initialisation is complete.
func NotifyReady() bool {
	return notify(daemon.SdNotifyReady)
}

// NotifyStopping tells systemd shutdown has begun.
func NotifyStopping() bool {
	return notify(daemon.SdNotifyStopping)
}

// NotifyReloading tells systemd the crontab is being reloaded. Call
// NotifyReady when the reload is done.
func NotifyReloading() bool {
	return notify(daemon.SdNotifyReloading)
}

// NotifyStatus sets the free-form status line shown by systemctl status.
func NotifyStatus(status string) bool {
	return notify("STATUS=" + status)
}

// HealthFunc reports whether the service is healthy.
type HealthFunc func() bool

// StartWatchdog pings the systemd watchdog at half of WatchdogSec while
// healthy returns true. It returns false when no watchdog is configured.
func StartWatchdog(ctx context.Context, healthy HealthFunc) bool {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		slog.Debug("systemd watchdog not enabled")
		return false
	}

	slog.Info("starting systemd watchdog", slog.Duration("watchdog_interval", interval))
	go watchdogLoop(ctx, interval/2, healthy, func() bool {
		return notify(daemon.SdNotifyWatchdog)
	})
	return true
}

// watchdogLoop calls ping every interval while healthy, until ctx is done.
func watchdogLoop(ctx context.Context, interval time.Duration, healthy HealthFunc, ping func() bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !healthy() {
				slog.Warn("health check failed, skipping watchdog ping")
				continue
			}
			ping()
		}
	}
}
