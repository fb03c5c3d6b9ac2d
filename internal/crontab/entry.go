// Package crontab implements the schedule-matching core of sugicron.
// It parses crontab lines into entries and decides, for a point in time,
// which entries are due.
//
// This file defines the Entry type and the time fields it carries.
package crontab

import (
	"fmt"
	"strings"
)

// Field identifies one of the five time fields of a crontab entry.
type Field int

const (
	FieldMinute Field = iota
	FieldHour
	FieldDayOfMonth
	FieldMonth
	FieldDayOfWeek
)

// fieldCount is the number of time fields preceding the command.
const fieldCount = 5

// Fields lists the time fields in crontab column order.
var Fields = [fieldCount]Field{FieldMinute, FieldHour, FieldDayOfMonth, FieldMonth, FieldDayOfWeek}

// String returns the crontab column name of the field.
func (f Field) String() string {
	switch f {
	case FieldMinute:
		return "minute"
	case FieldHour:
		return "hour"
	case FieldDayOfMonth:
		return "day"
	case FieldMonth:
		return "month"
	case FieldDayOfWeek:
		return "dow"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// Bounds returns the inclusive range of calendar values for the field.
func (f Field) Bounds() (lo, hi int) {
	switch f {
	case FieldMinute:
		return 0, 59
	case FieldHour:
		return 0, 23
	case FieldDayOfMonth:
		return 1, 31
	case FieldMonth:
		return 1, 12
	case FieldDayOfWeek:
		return 0, 6
	default:
		return 0, -1
	}
}

// Entry is one parsed crontab line: five raw time field specifications and
// the command to run. Field specs are kept verbatim so that step forms can be
// evaluated against elapsed units at match time.
//
// Entries are values and are never modified after parsing.
type Entry struct {
	Minute     string `json:"minute"`
	Hour       string `json:"hour"`
	DayOfMonth string `json:"day"`
	Month      string `json:"month"`
	DayOfWeek  string `json:"dow"`

	// Command is everything after the fifth field. It is opaque to the
	// scheduler and handed to the executor as-is.
	Command string `json:"command"`

	// Line is the 1-based line number in the source file, 0 if unknown.
	Line int `json:"line,omitempty"`
}

// Spec returns the raw specification of the given field.
func (e Entry) Spec(f Field) string {
	switch f {
	case FieldMinute:
		return e.Minute
	case FieldHour:
		return e.Hour
	case FieldDayOfMonth:
		return e.DayOfMonth
	case FieldMonth:
		return e.Month
	case FieldDayOfWeek:
		return e.DayOfWeek
	default:
		return ""
	}
}

// Schedule returns the five time fields joined the way they appear in a
// crontab file.
func (e Entry) Schedule() string {
	return strings.Join([]string{e.Minute, e.Hour, e.DayOfMonth, e.Month, e.DayOfWeek}, " ")
}

// String renders the entry back to crontab syntax.
func (e Entry) String() string {
	return e.Schedule() + " " + e.Command
}
