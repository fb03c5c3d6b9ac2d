// executor.go runs crontab commands through a shell with a timeout.
// Each command gets its own process group so that a timeout kills every
// child it spawned, not just the shell.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// DefaultOutputLimit caps captured stdout and stderr per stream.
const DefaultOutputLimit = 64 * 1024

// Executor runs shell commands with timeout and output capture.
type Executor struct {
	// Shell is the absolute path of the shell, invoked as `Shell -c command`.
	Shell string

	// Env is appended to the inherited environment when non-empty.
	Env []string

	// OutputLimit caps bytes kept per stream. Zero means DefaultOutputLimit.
	OutputLimit int
}

// New creates an Executor that runs commands with the given shell path.
func New(shell string) *Executor {
	return &Executor{
		Shell:       shell,
		OutputLimit: DefaultOutputLimit,
	}
}

// Execute runs command and waits for it to finish or for timeout to expire.
//
// A non-zero exit or a timeout is reported in the Result, not as an error.
// An error is returned only when the process could not be started at all
// (missing shell, permission denied).
func (e *Executor) Execute(ctx context.Context, command string, timeout time.Duration) (*Result, error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, e.Shell, "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if len(e.Env) > 0 {
		cmd.Env = append(cmd.Environ(), e.Env...)
	}

	limit := e.OutputLimit
	if limit <= 0 {
		limit = DefaultOutputLimit
	}
	stdout := &cappedBuffer{limit: limit}
	stderr := &cappedBuffer{limit: limit}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// Kill the whole process group (negative pid).
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	result := &Result{
		Command:   command,
		StartedAt: time.Now(),
	}

	err := cmd.Run()
	result.Duration = time.Since(result.StartedAt)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.Truncated = stdout.truncated || stderr.truncated

	if err == nil {
		return result, nil
	}

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		result.ExitCode = -1
		result.TimedOut = true
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	return nil, fmt.Errorf("failed to run %q: %w", command, err)
}

// cappedBuffer keeps the first limit bytes written and discards the rest
// while still reporting full writes, so the child never sees EPIPE.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = len(p) > 0 || b.truncated
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
