// snapshot.go derives the calendar values and elapsed-unit counts that the
// matcher compares time fields against.

package crontab

import "time"

// daysPerMonth is the fixed month length used for month step matching.
// Elapsed months are days since the epoch divided by 30, not calendar months.
const daysPerMonth = 30

// Snapshot is the view of a single reference time used for matching.
// It is built in one go by NewSnapshot and never updated in place.
type Snapshot struct {
	// Time is the reference time truncated to the minute.
	Time time.Time

	// Calendar values in the reference time's location.
	Minute  int // 0-59
	Hour    int // 0-23
	Day     int // 1-31
	Month   int // 1-12
	Weekday int // 0-6, Sunday = 0

	// Whole units elapsed since the Unix epoch.
	Minutes int64
	Hours   int64
	Days    int64
	Months  int64
}

// NewSnapshot builds the snapshot for t. Calendar values are taken in t's
// location; pass a time in time.Local for host-clock behaviour. Any two
// instants within the same minute yield equal snapshots.
func NewSnapshot(t time.Time) Snapshot {
	t = t.Truncate(time.Minute)
	unix := t.Unix()
	days := floorDiv(unix, 86400)

	return Snapshot{
		Time:    t,
		Minute:  t.Minute(),
		Hour:    t.Hour(),
		Day:     t.Day(),
		Month:   int(t.Month()),
		Weekday: int(t.Weekday()),
		Minutes: floorDiv(unix, 60),
		Hours:   floorDiv(unix, 3600),
		Days:    days,
		Months:  floorDiv(days, daysPerMonth),
	}
}

// floorDiv divides rounding toward negative infinity so that instants
// before the epoch land in the correct unit.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
