package ui

import (
	"testing"
)

func TestStatusIconRunning(t *testing.T) {
	icon, _ := StatusIcon("running")
	if icon != IconRunning {
		t.Errorf("expected running icon, got %q", icon)
	}
}

func TestStatusIconFailedDistinctFromCompleted(t *testing.T) {
	_, colorFailed := StatusIcon("failed")
	_, colorCompleted := StatusIcon("completed")
	if colorFailed == colorCompleted {
		t.Error("failed should have distinct color from completed")
	}
}

func TestStatusIconUnknownFallsBack(t *testing.T) {
	icon, _ := StatusIcon("unknown-xyz")
	if icon == "" {
		t.Error("expected non-empty icon for unknown status")
	}
}

func TestConnIconStates(t *testing.T) {
	connected, colorConnected := ConnIcon("connected")
	if connected == "" {
		t.Error("expected non-empty icon for connected")
	}
	_, colorDisconnected := ConnIcon("disconnected")
	if colorConnected == colorDisconnected {
		t.Error("connected should have distinct color from disconnected")
	}
}
