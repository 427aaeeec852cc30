package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateString(t *testing.T) {
	if got := TruncateString("short", 10); got != "short" {
		t.Errorf("expected short strings to pass through, got %q", got)
	}

	long := strings.Repeat("a", 20)
	got := TruncateString(long, 5)
	if !strings.HasPrefix(got, "aaaaa...") {
		t.Errorf("expected truncation at 5 chars, got %q", got)
	}
	if !strings.Contains(got, "total: 20 chars") {
		t.Errorf("expected original length in suffix, got %q", got)
	}
}

func TestTruncateStringKeepsRunesWhole(t *testing.T) {
	// é occupies bytes 1-2, so a 2-byte cut lands mid-rune and must back up.
	got := TruncateString("héllo wörld", 2)
	if !utf8.ValidString(got) {
		t.Fatalf("expected valid UTF-8 after truncation, got %q", got)
	}
	if !strings.HasPrefix(got, "h...") {
		t.Errorf("expected the cut on a rune boundary, got %q", got)
	}
}

func TestTruncateStringNonPositiveLimit(t *testing.T) {
	// A non-positive limit falls back to the default, so short strings are
	// untouched even when maxLen is 0.
	if got := TruncateString("short", 0); got != "short" {
		t.Errorf("expected fallback to default limit, got %q", got)
	}

	long := strings.Repeat("b", DefaultMaxStringLength+1)
	got := TruncateString(long, -1)
	if len(got) <= DefaultMaxStringLength {
		// Truncated form carries the suffix, so it is longer than the cap.
		t.Errorf("expected truncated output with suffix, got %d chars", len(got))
	}
	if !strings.Contains(got, "truncated") {
		t.Errorf("expected truncation marker, got %q", got[:50])
	}
}
