// Package shutdown stops the daemon's components in reverse order of
// registration, so that a component is stopped before the things it
// depends on.
//
//	coord := shutdown.NewCoordinator(logger)
//	coord.Register("journal", shutdown.Closer(j))
//	coord.Register("runner", r)
//	coord.Shutdown(ctx) // runner first, then journal
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Shutdowner is implemented by components that take part in shutdown.
// Shutdown should honour ctx's deadline.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Func adapts a function to Shutdowner.
type Func func(ctx context.Context) error

// Shutdown calls f.
func (f Func) Shutdown(ctx context.Context) error {
	return f(ctx)
}

// Closer adapts an io.Closer, such as a database handle, to Shutdowner.
func Closer(c io.Closer) Shutdowner {
	return Func(func(context.Context) error {
		return c.Close()
	})
}

type component struct {
	name string
	s    Shutdowner
}

// Coordinator stops registered components last-in first-out.
type Coordinator struct {
	components []component
	logger     *slog.Logger
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator(logger *slog.Logger) *Coordinator {
	return &Coordinator{
		logger: logger.With(slog.String("component", "shutdown")),
	}
}

// Register appends a component.
func (c *Coordinator) Register(name string, s Shutdowner) {
	c.components = append(c.components, component{name: name, s: s})
	c.logger.Debug("registered shutdown handler", slog.String("handler", name))
}

// Len returns the number of registered components.
func (c *Coordinator) Len() int {
	return len(c.components)
}

// Shutdown stops every component in reverse order. A failing component
// does not prevent the remaining ones from being stopped; all errors are
// returned joined. Once ctx expires the remaining components are skipped.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.logger.Info("starting coordinated shutdown", slog.Int("components", len(c.components)))

	var errs []error
	for i := len(c.components) - 1; i >= 0; i-- {
		comp := c.components[i]

		if err := ctx.Err(); err != nil {
			c.logger.Error("shutdown deadline exceeded", slog.String("remaining_component", comp.name))
			errs = append(errs, fmt.Errorf("shutdown deadline exceeded at %s: %w", comp.name, err))
			break
		}

		start := time.Now()
		err := comp.s.Shutdown(ctx)
		attrs := []any{
			slog.String("handler", comp.name),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			c.logger.Error("component shutdown failed", append(attrs, slog.String("error", err.Error()))...)
			errs = append(errs, fmt.Errorf("failed to shutdown %s: %w", comp.name, err))
			continue
		}
		c.logger.Info("component shutdown complete", attrs...)
	}

	if len(errs) > 0 {
		c.logger.Warn("coordinated shutdown completed with errors")
		return errors.Join(errs...)
	}
	c.logger.Info("coordinated shutdown complete")
	return nil
}
