package realtime

import (
	"testing"
	"time"
)

func TestBackoffDelayDoublesPerAttempt(t *testing.T) {
	base := time.Second
	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
	}
	for i, w := range want {
		if got := backoffDelay(base, i+1); got != w {
			t.Errorf("attempt %d: delay = %v, want %v", i+1, got, w)
		}
	}
}

func TestDeriveWSURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "http://localhost:8754", want: "ws://localhost:8754/api/ws"},
		{in: "https://orc.example.com", want: "wss://orc.example.com/api/ws"},
		{in: "ws://localhost:8754", want: "ws://localhost:8754/api/ws"},
		{in: "wss://orc.example.com", want: "wss://orc.example.com/api/ws"},
		{in: "ftp://example.com", err: true},
	}
	for _, tc := range tests {
		got, err := deriveWSURL(tc.in)
		if tc.err {
			if err == nil {
				t.Errorf("deriveWSURL(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("deriveWSURL(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("deriveWSURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
