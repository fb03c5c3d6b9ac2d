// parser.go turns a single crontab line into an Entry.
// ParseLine only gates the shape of a line; Entry.Validate performs the
// stricter per-alternative grammar check.

package crontab

import (
	"errors"
	"strings"
	"unicode"
)

// ParseLine parses one candidate crontab line of the form
//
//	<min> <hour> <day> <month> <dow> <command...>
//
// The command is everything after the fifth field with its inner whitespace
// preserved. The caller is expected to have skipped blank and comment lines.
func ParseLine(line string) (Entry, error) {
	rest := strings.TrimSpace(line)

	var fields [fieldCount]string
	for i := range fields {
		var tok string
		tok, rest = nextToken(rest)
		if tok == "" {
			return Entry{}, &SyntaxError{Text: line, Err: ErrFieldCount}
		}
		if !validCharset(tok) {
			return Entry{}, &SyntaxError{Text: line, Err: ErrFieldCharset}
		}
		fields[i] = tok
	}

	command := strings.TrimSpace(rest)
	if command == "" {
		return Entry{}, &SyntaxError{Text: line, Err: ErrEmptyCommand}
	}

	return Entry{
		Minute:     fields[0],
		Hour:       fields[1],
		DayOfMonth: fields[2],
		Month:      fields[3],
		DayOfWeek:  fields[4],
		Command:    command,
	}, nil
}

// nextToken splits off the first whitespace-delimited token of s and returns
// it along with the remainder (leading whitespace removed).
func nextToken(s string) (tok, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		return s, ""
	}
	return s[:end], strings.TrimLeftFunc(s[end:], unicode.IsSpace)
}

func validCharset(tok string) bool {
	for _, r := range tok {
		switch {
		case r >= '0' && r <= '9':
		case r == '*', r == ',', r == '-', r == '/':
		default:
			return false
		}
	}
	return true
}

// IsCandidate reports whether a raw crontab line should be handed to
// ParseLine. Blank lines and comments are not entries.
func IsCandidate(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed != "" && !strings.HasPrefix(trimmed, "#")
}

// Validate checks every alternative of every time field against the strict
// grammar: '*', an in-range integer, an in-range A-B range, or a '/N' / '*/N'
// step with N > 0. Day-of-week does not accept the step form.
//
// All violations are returned joined; nil means the entry is well-formed.
func (e Entry) Validate() error {
	var errs []error
	for _, f := range Fields {
		lo, hi := f.Bounds()
		for _, tok := range strings.Split(e.Spec(f), ",") {
			if reason := checkToken(f, tok, lo, hi); reason != "" {
				errs = append(errs, &FieldError{Field: f, Token: tok, Reason: reason})
			}
		}
	}
	return errors.Join(errs...)
}

func checkToken(f Field, tok string, lo, hi int) string {
	if tok == "" {
		return "is empty"
	}
	if tok == "*" {
		return ""
	}
	if n, ok := parseUint(tok); ok {
		if n < lo || n > hi {
			return "is out of range"
		}
		return ""
	}
	if a, b, ok := strings.Cut(tok, "-"); ok {
		if _, okA := parseBounded(a, lo, hi); !okA {
			return "has an invalid range start"
		}
		if _, okB := parseBounded(b, lo, hi); !okB {
			return "has an invalid range end"
		}
		return ""
	}
	if _, ok := parseStep(tok); ok {
		if f == FieldDayOfWeek {
			return "uses a step, which day-of-week does not support"
		}
		return ""
	}
	return "is not '*', a number, a range or a step"
}
