package ui

import (
	"testing"
	"time"
)

func TestHumanizeDuration(t *testing.T) {
	cases := []struct {
		name string
		in   int64 // seconds
		want string
	}{
		{"negative", -5, "now"},
		{"subsecond", 0, "now"},
		{"seconds", 12, "12s"},
		{"minutes", 61, "1m"},
		{"hours_only", 2*60*60 + 10, "2h"},
		{"hours_minutes", 2*60*60 + 3*60, "2h 3m"},
		{"days", 24 * 60 * 60, "1d"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := humanizeDuration(timeSeconds(tc.in))
			if got != tc.want {
				t.Fatalf("humanizeDuration(%d) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  hello  ", 10); got != "hello" {
		t.Fatalf("truncate = %q, want hello", got)
	}
	if got := truncate("abcdefgh", 6); got != "abc..." {
		t.Fatalf("truncate = %q, want abc...", got)
	}
	if got := truncate("abcd", 2); got != "ab" {
		t.Fatalf("truncate limit<=3 = %q, want ab", got)
	}
}

func TestFormatBytes(t *testing.T) {
	if got := formatBytes(999); got != "999 B" {
		t.Fatalf("formatBytes = %q, want 999 B", got)
	}
	if got := formatBytes(1024); got != "1.00 KiB" {
		t.Fatalf("formatBytes = %q, want 1.00 KiB", got)
	}
	if got := formatBytes(1024 * 1024); got != "1.00 MiB" {
		t.Fatalf("formatBytes = %q, want 1.00 MiB", got)
	}
}

func TestFormatModified(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	if got := formatModified(time.Time{}, now); got != "-" {
		t.Fatalf("formatModified(zero) = %q, want -", got)
	}
	if got := formatModified(now.Add(-90*time.Second), now); got != "1m ago" {
		t.Fatalf("formatModified = %q, want 1m ago", got)
	}
}

func TestWindowStart(t *testing.T) {
	if got := windowStart(3, 5, 10); got != 0 {
		t.Fatalf("windowStart fits = %d, want 0", got)
	}
	if got := windowStart(50, 100, 10); got != 45 {
		t.Fatalf("windowStart middle = %d, want 45", got)
	}
	if got := windowStart(99, 100, 10); got != 90 {
		t.Fatalf("windowStart end = %d, want 90", got)
	}
	if got := clamp(7, 3); got != 2 {
		t.Fatalf("clamp = %d, want 2", got)
	}
}

func timeSeconds(sec int64) time.Duration {
	return time.Duration(sec) * time.Second
}
