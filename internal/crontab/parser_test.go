package crontab

import (
	"errors"
	"strings"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Entry
	}{
		{
			name: "all stars",
			line: "* * * * * foo.php 1",
			want: Entry{"*", "*", "*", "*", "*", "foo.php 1", 0},
		},
		{
			name: "bare step",
			line: "/2 * * * * foo.php 3",
			want: Entry{"/2", "*", "*", "*", "*", "foo.php 3", 0},
		},
		{
			name: "lists and ranges",
			line: "15,45 9-15 1 1-6 0,6 /usr/bin/backup --full",
			want: Entry{"15,45", "9-15", "1", "1-6", "0,6", "/usr/bin/backup --full", 0},
		},
		{
			name: "command keeps inner whitespace",
			line: "  0 17 * * *   echo  'a   b'  ",
			want: Entry{"0", "17", "*", "*", "*", "echo  'a   b'", 0},
		},
		{
			name: "tabs separate fields",
			line: "*/5\t*\t*\t*\t*\trun.sh",
			want: Entry{"*/5", "*", "*", "*", "*", "run.sh", 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if err != nil {
				t.Fatalf("ParseLine(%q) error: %v", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("ParseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseLine_Errors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"* * * * *", ErrEmptyCommand},
		{"* * * *", ErrFieldCount},
		{"", ErrFieldCount},
		{"* * * * *    ", ErrEmptyCommand},
		{"a * * * * cmd", ErrFieldCharset},
		{"* * * * MON cmd", ErrFieldCharset},
		{"5,abc * * * * cmd", ErrFieldCharset},
		{"@hourly cmd", ErrFieldCharset},
	}

	for _, tt := range tests {
		_, err := ParseLine(tt.line)
		if err == nil {
			t.Errorf("ParseLine(%q) expected error", tt.line)
			continue
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("ParseLine(%q) error = %v, want %v", tt.line, err, tt.want)
		}
		var synErr *SyntaxError
		if !errors.As(err, &synErr) {
			t.Errorf("ParseLine(%q) error is %T, want *SyntaxError", tt.line, err)
			continue
		}
		if synErr.Text != tt.line {
			t.Errorf("SyntaxError.Text = %q, want %q", synErr.Text, tt.line)
		}
		if !strings.Contains(err.Error(), "is not valid") {
			t.Errorf("unexpected message: %v", err)
		}
	}
}

func TestParseLine_RoundTrip(t *testing.T) {
	line := "/30 9-15 * * * foo.php 7"
	e, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if e.String() != line {
		t.Errorf("String() = %q, want %q", e.String(), line)
	}
	if e.Schedule() != "/30 9-15 * * *" {
		t.Errorf("Schedule() = %q", e.Schedule())
	}
}

func TestIsCandidate(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"", false},
		{"   ", false},
		{"\t", false},
		{"# comment", false},
		{"   # indented comment", false},
		{"* * * * * cmd", true},
		{"  * * * * * cmd # trailing", true},
	}

	for _, tt := range tests {
		if got := IsCandidate(tt.line); got != tt.want {
			t.Errorf("IsCandidate(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestEntryValidate(t *testing.T) {
	valid := []string{
		"* * * * * cmd",
		"0 0 1 1 0 cmd",
		"59 23 31 12 6 cmd",
		"/2 */3 /4 */2 * cmd",
		"15,45 21-7 1-31 12-1 5-1 cmd",
	}
	for _, line := range valid {
		e, err := ParseLine(line)
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", line, err)
		}
		if err := e.Validate(); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", line, err)
		}
	}

	invalid := []struct {
		line  string
		field Field
	}{
		{"60 * * * * cmd", FieldMinute},
		{"* 24 * * * cmd", FieldHour},
		{"* * 0 * * cmd", FieldDayOfMonth},
		{"* * * 13 * cmd", FieldMonth},
		{"* * * * 7 cmd", FieldDayOfWeek},
		{"* * * * */2 cmd", FieldDayOfWeek},
		{"/0 * * * * cmd", FieldMinute},
		{"5, * * * * cmd", FieldMinute},
		{"1-2-3 * * * * cmd", FieldMinute},
		{"* 9-15/2 * * * cmd", FieldHour},
		{"* * * 0-5 * cmd", FieldMonth},
	}
	for _, tt := range invalid {
		e, err := ParseLine(tt.line)
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", tt.line, err)
		}
		err = e.Validate()
		if err == nil {
			t.Errorf("Validate(%q) = nil, want error", tt.line)
			continue
		}
		var fieldErr *FieldError
		if !errors.As(err, &fieldErr) {
			t.Errorf("Validate(%q) error %T, want *FieldError", tt.line, err)
			continue
		}
		if fieldErr.Field != tt.field {
			t.Errorf("Validate(%q) field = %s, want %s", tt.line, fieldErr.Field, tt.field)
		}
	}
}

func TestFieldBounds(t *testing.T) {
	tests := []struct {
		field  Field
		lo, hi int
		name   string
	}{
		{FieldMinute, 0, 59, "minute"},
		{FieldHour, 0, 23, "hour"},
		{FieldDayOfMonth, 1, 31, "day"},
		{FieldMonth, 1, 12, "month"},
		{FieldDayOfWeek, 0, 6, "dow"},
	}
	for _, tt := range tests {
		lo, hi := tt.field.Bounds()
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("%s.Bounds() = %d,%d want %d,%d", tt.field, lo, hi, tt.lo, tt.hi)
		}
		if tt.field.String() != tt.name {
			t.Errorf("String() = %q, want %q", tt.field.String(), tt.name)
		}
	}
}
