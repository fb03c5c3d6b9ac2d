// errors.go defines the error types produced while parsing crontab lines.
// Matching never fails; only parsing and strict validation report errors.

package crontab

import (
	"errors"
	"fmt"
)

// Reasons a line can fail to parse. They are exposed through
// SyntaxError.Unwrap so callers can test with errors.Is.
var (
	ErrFieldCount   = errors.New("expected five time fields followed by a command")
	ErrEmptyCommand = errors.New("command is empty")
	ErrFieldCharset = errors.New("time field contains characters other than digits, '*', ',', '-' and '/'")
)

// SyntaxError reports a crontab line that could not be turned into an Entry.
type SyntaxError struct {
	// Line is the 1-based line number, 0 when the text was parsed on its own.
	Line int
	// Text is the offending raw line.
	Text string
	// Err is the underlying reason.
	Err error
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("crontab line %d %q is not valid: %v", e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("crontab line %q is not valid: %v", e.Text, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// FieldError describes one alternative of a time field that fails strict
// validation.
type FieldError struct {
	Field  Field
	Token  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s field: %q %s", e.Field, e.Token, e.Reason)
}
