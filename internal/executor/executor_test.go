// executor_test.go tests shell execution, timeouts, output capture and the
// shell allowlist.
package executor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	sh, err := ResolveShell("sh")
	if err != nil {
		t.Fatalf("sh not available: %v", err)
	}
	return New(sh)
}

func TestExecute_Success(t *testing.T) {
	e := newTestExecutor(t)

	res, err := e.Execute(context.Background(), "echo hello; echo oops >&2", 5*time.Second)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if strings.TrimSpace(res.Stderr) != "oops" {
		t.Errorf("Stderr = %q", res.Stderr)
	}
	if res.Failed() {
		t.Error("Failed() = true for clean exit")
	}
	if res.Command != "echo hello; echo oops >&2" {
		t.Errorf("Command = %q", res.Command)
	}
}

func TestExecute_NonZeroExit(t *testing.T) {
	e := newTestExecutor(t)

	res, err := e.Execute(context.Background(), "exit 3", 5*time.Second)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if !res.Failed() {
		t.Error("Failed() = false for exit 3")
	}
}

func TestExecute_Timeout(t *testing.T) {
	e := newTestExecutor(t)

	start := time.Now()
	res, err := e.Execute(context.Background(), "sleep 10", 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.TimedOut {
		t.Error("expected TimedOut")
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout did not kill the process promptly")
	}
}

func TestExecute_Env(t *testing.T) {
	e := newTestExecutor(t)
	e.Env = []string{"SUGICRON_TEST=42"}

	res, err := e.Execute(context.Background(), "echo $SUGICRON_TEST", 5*time.Second)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "42" {
		t.Errorf("Stdout = %q, want 42", res.Stdout)
	}
}

func TestExecute_OutputLimit(t *testing.T) {
	e := newTestExecutor(t)
	e.OutputLimit = 10

	res, err := e.Execute(context.Background(), "echo 0123456789abcdef", 5*time.Second)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stdout != "0123456789" {
		t.Errorf("Stdout = %q, want first 10 bytes", res.Stdout)
	}
	if !res.Truncated {
		t.Error("expected Truncated")
	}
}

func TestExecute_MissingShell(t *testing.T) {
	e := New("/nonexistent/shell")

	_, err := e.Execute(context.Background(), "true", time.Second)
	if err == nil {
		t.Fatal("expected error for missing shell")
	}
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{limit: 4}
	n, _ := b.Write([]byte("ab"))
	if n != 2 {
		t.Errorf("n = %d", n)
	}
	n, _ = b.Write([]byte("cdef"))
	if n != 4 {
		t.Errorf("n = %d, writes must report full length", n)
	}
	if b.String() != "abcd" || !b.truncated {
		t.Errorf("buffer = %q truncated=%v", b.String(), b.truncated)
	}
}

func TestResolveShell(t *testing.T) {
	path, err := ResolveShell("sh")
	if err != nil {
		t.Fatalf("expected sh to be found: %v", err)
	}
	if !strings.HasPrefix(path, "/") || !strings.HasSuffix(path, "sh") {
		t.Errorf("unexpected path %q", path)
	}

	for _, bad := range []string{"", "ruby", "BASH", "/usr/bin/python", "sh "} {
		if _, err := ResolveShell(bad); err == nil {
			t.Errorf("ResolveShell(%q) expected error", bad)
		} else if !strings.Contains(err.Error(), "invalid shell") {
			t.Errorf("ResolveShell(%q) error = %v", bad, err)
		}
	}
}

func TestShellResolver_Concurrent(t *testing.T) {
	r := NewShellResolver()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve("sh"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent resolve: %v", err)
	}
	if len(r.paths) != 1 {
		t.Errorf("cache size = %d, want 1", len(r.paths))
	}
}

func TestIsValidShell(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"sh", true},
		{"bash", true},
		{"dash", true},
		{"zsh", true},
		{"fish", false},
		{"Bash", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidShell(tt.name); got != tt.want {
			t.Errorf("IsValidShell(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
