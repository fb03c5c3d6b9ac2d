package crontab

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCrontab = `# nightly jobs
* * * * * foo.php 1

   # indented comment
/2 * * * * foo.php 3
not a valid line
0 17 * * * foo.php 4
60 * * * * foo.php 8
`

func TestLoad_SkipPolicy(t *testing.T) {
	res, err := Load(strings.NewReader(sampleCrontab), LoadOptions{Policy: PolicySkip})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := commands(res.Entries)
	want := []string{"foo.php 1", "foo.php 3", "foo.php 4", "foo.php 8"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("entries = %v, want %v", got, want)
	}

	lines := []int{}
	for _, e := range res.Entries {
		lines = append(lines, e.Line)
	}
	if lines[0] != 2 || lines[1] != 5 || lines[2] != 7 || lines[3] != 8 {
		t.Errorf("line numbers = %v, want [2 5 7 8]", lines)
	}

	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one", res.Errors)
	}
	if res.Errors[0].Line != 6 || res.Errors[0].Text != "not a valid line" {
		t.Errorf("error = %+v", res.Errors[0])
	}
	if !errors.Is(res.Err(), ErrFieldCharset) {
		t.Errorf("Err() = %v, want ErrFieldCharset", res.Err())
	}
}

func TestLoad_StrictRejectsOutOfRange(t *testing.T) {
	res, err := Load(strings.NewReader(sampleCrontab), LoadOptions{Policy: PolicySkip, Strict: true})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(res.Entries) != 3 {
		t.Errorf("entries = %d, want 3", len(res.Entries))
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %d, want 2", len(res.Errors))
	}
	var fieldErr *FieldError
	if !errors.As(res.Errors[1], &fieldErr) {
		t.Fatalf("second error %v is not a FieldError", res.Errors[1])
	}
	if fieldErr.Field != FieldMinute || fieldErr.Token != "60" {
		t.Errorf("field error = %+v", fieldErr)
	}
}

func TestLoad_AbortPolicy(t *testing.T) {
	res, err := Load(strings.NewReader(sampleCrontab), LoadOptions{Policy: PolicyAbort})
	if res != nil {
		t.Errorf("expected nil result on abort, got %+v", res)
	}
	var synErr *SyntaxError
	if !errors.As(err, &synErr) {
		t.Fatalf("err = %v, want *SyntaxError", err)
	}
	if synErr.Line != 6 {
		t.Errorf("Line = %d, want 6", synErr.Line)
	}
	if !strings.Contains(err.Error(), "not a valid line") {
		t.Errorf("error should name the line: %v", err)
	}
}

func TestLoad_Empty(t *testing.T) {
	res, err := Load(strings.NewReader("\n# only comments\n\n"), LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(res.Entries) != 0 || len(res.Errors) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
	if res.Err() != nil {
		t.Errorf("Err() = %v, want nil", res.Err())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crontab")
	if err := os.WriteFile(path, []byte(strings.Join(fixtureLines, "\n")), 0600); err != nil {
		t.Fatal(err)
	}

	res, err := LoadFile(path, LoadOptions{Policy: PolicyAbort, Strict: true})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(res.Entries) != len(fixtureLines) {
		t.Errorf("entries = %d, want %d", len(res.Entries), len(fixtureLines))
	}
	if len(res.Schedule().Entries) != len(fixtureLines) {
		t.Error("Schedule() lost entries")
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing"), LoadOptions{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParsePolicyFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    ParsePolicy
		wantErr bool
	}{
		{"", PolicySkip, false},
		{"skip", PolicySkip, false},
		{"abort", PolicyAbort, false},
		{"explode", PolicySkip, true},
	}
	for _, tt := range tests {
		got, err := ParsePolicyFromString(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicyFromString(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParsePolicyFromString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
