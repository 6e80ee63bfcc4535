package main

import (
	"testing"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "valid timestamp",
			input: "2026-03-15T14:30:00Z",
			want:  "Mar 15 14:30",
		},
		{
			name:  "invalid timestamp returned as-is",
			input: "not-a-time",
			want:  "not-a-time",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatTime(tt.input)
			if got != tt.want {
				t.Errorf("formatTime(%s) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncateJobID(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{"550e8400-e29b-41d4-a716-446655440000", 8, "550e8400"},
		{"short", 8, "short"},
		{"", 8, ""},
		{"exactly8", 8, "exactly8"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := truncateJobID(tt.input, tt.max)
			if got != tt.want {
				t.Errorf("truncateJobID(%s, %d) = %s, want %s", tt.input, tt.max, got, tt.want)
			}
		})
	}
}

func TestFmtFloat(t *testing.T) {
	v := 123.456
	if got := fmtFloat(&v); got != "123.46" {
		t.Errorf("fmtFloat(123.456) = %s, want 123.46", got)
	}
	if got := fmtFloat(nil); got != "-" {
		t.Errorf("fmtFloat(nil) = %s, want -", got)
	}
}

func TestCommandWiring(t *testing.T) {
	for _, c := range []struct {
		name string
		use  string
	}{
		{"init", initCmd().Use},
		{"generate", generateCmd().Use},
		{"run", runCmd().Use},
		{"analyze", analyzeCmd().Use},
		{"test", testCmd().Use},
		{"job", jobCmd().Use},
	} {
		if c.use == "" {
			t.Errorf("command %s has empty Use", c.name)
		}
	}
}

func TestJobCmd_Subcommands(t *testing.T) {
	cmd := jobCmd()

	want := map[string]bool{
		"submit": false,
		"list":   false,
		"status": false,
		"cancel": false,
		"retry":  false,
		"report": false,
	}

	for _, sub := range cmd.Commands() {
		name := sub.Name()
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}

	for name, found := range want {
		if !found {
			t.Errorf("job subcommand %s not registered", name)
		}
	}
}
