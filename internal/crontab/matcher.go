// matcher.go decides whether entries are due for a snapshot.
// Matching is total: malformed tokens never error, they just don't match.

package crontab

import (
	"strings"
	"time"
)

// IsDue reports whether all five time fields of e match s.
func IsDue(e Entry, s Snapshot) bool {
	return checkWeekday(e.DayOfWeek, s.Weekday) &&
		checkField(e.Month, 1, 12, s.Month, s.Months) &&
		checkField(e.DayOfMonth, 1, 31, s.Day, s.Days) &&
		checkField(e.Hour, 0, 23, s.Hour, s.Hours) &&
		checkField(e.Minute, 0, 59, s.Minute, s.Minutes)
}

// DueEntries returns the entries due at s in their original order.
// The input slice is not modified.
func DueEntries(entries []Entry, s Snapshot) []Entry {
	var due []Entry
	for _, e := range entries {
		if IsDue(e, s) {
			due = append(due, e)
		}
	}
	return due
}

// Schedule is an ordered, immutable set of entries.
type Schedule struct {
	Entries []Entry
}

// Due returns the entries due at t.
func (s *Schedule) Due(t time.Time) []Entry {
	return DueEntries(s.Entries, NewSnapshot(t))
}

// checkField matches a comma-separated field spec against a calendar value
// and an elapsed-unit count. Each alternative may match as '*', a range,
// an exact value within [lo, hi], or a '/N' step over elapsed units.
func checkField(spec string, lo, hi, value int, elapsed int64) bool {
	for _, alt := range strings.Split(spec, ",") {
		if alt == "*" ||
			matchRange(alt, lo, hi, value) ||
			matchExact(alt, lo, hi, value) ||
			matchStep(alt, elapsed) {
			return true
		}
	}
	return false
}

// checkWeekday is checkField without the step form.
func checkWeekday(spec string, weekday int) bool {
	for _, alt := range strings.Split(spec, ",") {
		if alt == "*" ||
			matchRange(alt, 0, 6, weekday) ||
			matchExact(alt, 0, 6, weekday) {
			return true
		}
	}
	return false
}

// matchRange handles "A-B". When A > B the range wraps past the field's
// upper bound, so 21-7 covers 21..23 and 0..7.
func matchRange(alt string, lo, hi, value int) bool {
	a, b, ok := strings.Cut(alt, "-")
	if !ok {
		return false
	}
	from, okFrom := parseBounded(a, lo, hi)
	to, okTo := parseBounded(b, lo, hi)
	if !okFrom || !okTo {
		return false
	}
	if from <= to {
		return value >= from && value <= to
	}
	return value >= from || value <= to
}

func matchExact(alt string, lo, hi, value int) bool {
	n, ok := parseBounded(alt, lo, hi)
	return ok && n == value
}

func matchStep(alt string, elapsed int64) bool {
	n, ok := parseStep(alt)
	if !ok {
		return false
	}
	return elapsed%int64(n) == 0
}

// parseStep accepts "/N" and "*/N" with N > 0.
func parseStep(alt string) (int, bool) {
	alt = strings.TrimPrefix(alt, "*")
	digits, ok := strings.CutPrefix(alt, "/")
	if !ok {
		return 0, false
	}
	n, ok := parseUint(digits)
	if !ok || n == 0 {
		return 0, false
	}
	return n, true
}

func parseBounded(s string, lo, hi int) (int, bool) {
	n, ok := parseUint(s)
	if !ok || n < lo || n > hi {
		return 0, false
	}
	return n, true
}

// maxDigits keeps parseUint well clear of int overflow.
const maxDigits = 9

// parseUint parses a non-empty run of ASCII digits. Signs, spaces and other
// characters are rejected.
func parseUint(s string) (int, bool) {
	if s == "" || len(s) > maxDigits {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
