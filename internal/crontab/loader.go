// loader.go reads a whole crontab file and collects entries and per-line
// errors.

package crontab

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// ParsePolicy decides what happens when a line fails to parse.
type ParsePolicy int

const (
	// PolicySkip keeps loading and records the bad line in LoadResult.Errors.
	PolicySkip ParsePolicy = iota
	// PolicyAbort stops at the first bad line and returns its SyntaxError.
	PolicyAbort
)

// ParsePolicyFromString maps the config spelling ("skip", "abort") to a
// ParsePolicy.
func ParsePolicyFromString(s string) (ParsePolicy, error) {
	switch s {
	case "skip", "":
		return PolicySkip, nil
	case "abort":
		return PolicyAbort, nil
	default:
		return PolicySkip, fmt.Errorf("unknown parse policy %q (want skip or abort)", s)
	}
}

// LoadOptions controls Load.
type LoadOptions struct {
	Policy ParsePolicy
	// Strict runs Entry.Validate on every parsed line.
	Strict bool
}

// LoadResult holds the outcome of loading a crontab.
type LoadResult struct {
	// Entries are the successfully parsed entries in file order.
	Entries []Entry
	// Errors has one SyntaxError per rejected line.
	Errors []*SyntaxError
}

// Err joins the per-line errors, or returns nil if every line parsed.
func (r *LoadResult) Err() error {
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Schedule wraps the loaded entries.
func (r *LoadResult) Schedule() *Schedule {
	return &Schedule{Entries: r.Entries}
}

// maxLineLength bounds a single crontab line.
const maxLineLength = 64 * 1024

// Load reads crontab lines from r. Blank lines and comments are skipped.
// With PolicyAbort the first bad line is returned as a *SyntaxError and the
// partial result is discarded.
func Load(r io.Reader, opts LoadOptions) (*LoadResult, error) {
	result := &LoadResult{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if !IsCandidate(text) {
			continue
		}

		entry, err := parseNumbered(text, lineNo, opts.Strict)
		if err != nil {
			if opts.Policy == PolicyAbort {
				return nil, err
			}
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Entries = append(result.Entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read crontab at line %d: %w", lineNo+1, err)
	}

	return result, nil
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string, opts LoadOptions) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open crontab %s: %w", path, err)
	}
	defer f.Close()

	return Load(f, opts)
}

func parseNumbered(text string, lineNo int, strict bool) (Entry, *SyntaxError) {
	entry, err := ParseLine(text)
	if err != nil {
		var synErr *SyntaxError
		if errors.As(err, &synErr) {
			synErr.Line = lineNo
			return Entry{}, synErr
		}
		return Entry{}, &SyntaxError{Line: lineNo, Text: text, Err: err}
	}
	if strict {
		if err := entry.Validate(); err != nil {
			return Entry{}, &SyntaxError{Line: lineNo, Text: text, Err: err}
		}
	}
	entry.Line = lineNo
	return entry, nil
}
