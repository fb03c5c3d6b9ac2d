// result.go defines what a finished job reports back to the runner.
package executor

import "time"

// Result holds the outcome of running one crontab command.
type Result struct {
	// Command is the shell command line that was run.
	Command string `json:"command"`

	// ExitCode is the process exit code. -1 means the process was killed
	// (timeout or signal) or never produced an exit status.
	ExitCode int `json:"exit_code"`

	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`

	// Truncated is set when stdout or stderr exceeded the capture limit.
	Truncated bool `json:"truncated,omitempty"`

	TimedOut  bool          `json:"timed_out"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Failed reports whether the command did not exit cleanly.
func (r *Result) Failed() bool {
	return r.TimedOut || r.ExitCode != 0
}
