package shutdown

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestShutdown_ReverseOrder(t *testing.T) {
	var order []string
	record := func(name string) Shutdowner {
		return Func(func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	c := NewCoordinator(nopLogger())
	c.Register("journal", record("journal"))
	c.Register("hooks", record("hooks"))
	c.Register("runner", record("runner"))

	if c.Len() != 3 {
		t.Errorf("Len = %d", c.Len())
	}
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if strings.Join(order, ",") != "runner,hooks,journal" {
		t.Errorf("order = %v", order)
	}
}

func TestShutdown_ContinuesAfterFailure(t *testing.T) {
	closed := false
	c := NewCoordinator(nopLogger())
	c.Register("db", Closer(closerFunc(func() error {
		closed = true
		return nil
	})))
	c.Register("broken", Func(func(context.Context) error {
		return errors.New("stuck")
	}))

	err := c.Shutdown(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to shutdown broken") {
		t.Errorf("err = %v", err)
	}
	if !closed {
		t.Error("db was not closed after earlier failure")
	}
}

func TestShutdown_DeadlineExceeded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	c := NewCoordinator(nopLogger())
	c.Register("late", Func(func(context.Context) error {
		called = true
		return nil
	}))

	err := c.Shutdown(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Error("component should be skipped once the context is done")
	}
}
