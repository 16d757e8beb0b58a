package realtime_test

import (
	"testing"

	"github.com/taskdeck/taskdeck/internal/realtime"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state realtime.State
		want  string
	}{
		{realtime.StateDisconnected, "disconnected"},
		{realtime.StateConnecting, "connecting"},
		{realtime.StateConnected, "connected"},
		{realtime.StateReconnecting, "reconnecting"},
		{realtime.State(99), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", tc.state, got, tc.want)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to realtime.State }{
		{realtime.StateDisconnected, realtime.StateConnecting},
		{realtime.StateDisconnected, realtime.StateReconnecting},
		{realtime.StateConnecting, realtime.StateConnected},
		{realtime.StateConnecting, realtime.StateDisconnected},
		{realtime.StateConnected, realtime.StateDisconnected},
		{realtime.StateReconnecting, realtime.StateConnecting},
		{realtime.StateReconnecting, realtime.StateDisconnected},
	}
	for _, tc := range allowed {
		if !realtime.CanTransition(tc.from, tc.to) {
			t.Errorf("CanTransition(%v, %v) = false, want true", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to realtime.State }{
		{realtime.StateConnected, realtime.StateConnecting},
		{realtime.StateConnected, realtime.StateReconnecting},
		{realtime.StateConnecting, realtime.StateReconnecting},
		{realtime.StateReconnecting, realtime.StateConnected},
		{realtime.StateDisconnected, realtime.StateConnected},
	}
	for _, tc := range forbidden {
		if realtime.CanTransition(tc.from, tc.to) {
			t.Errorf("CanTransition(%v, %v) = true, want false", tc.from, tc.to)
		}
	}
}
