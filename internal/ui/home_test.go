package ui

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateShortStringUnchanged(t *testing.T) {
	if got := truncate("fix login", 28); got != "fix login" {
		t.Errorf("got %q, want unchanged", got)
	}
}

func TestTruncateLongString(t *testing.T) {
	long := strings.Repeat("a", 40)
	got := truncate(long, 28)
	if len([]rune(got)) != 28 {
		t.Errorf("got %d runes, want 28", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "..") {
		t.Errorf("got %q, want .. suffix", got)
	}
}

func TestTruncateDoesNotSplitMultibyteRunes(t *testing.T) {
	// 40 three-byte runes; a byte slice at 26 would land mid-rune.
	long := strings.Repeat("日", 40)
	got := truncate(long, 28)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated string is not valid UTF-8: %q", got)
	}
	if len([]rune(got)) != 28 {
		t.Errorf("got %d runes, want 28", len([]rune(got)))
	}
}
