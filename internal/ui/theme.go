package ui

import "github.com/gdamore/tcell/v2"

// Theme colors for the TUI.
var (
	ColorBackground      = tcell.NewHexColor(0x1e1e2e)
	ColorBackgroundPanel = tcell.NewHexColor(0x181825)
	ColorBackgroundElem  = tcell.NewHexColor(0x313244)
	ColorPrimary         = tcell.NewHexColor(0x89b4fa) // blue
	ColorAccent          = tcell.NewHexColor(0xcba6f7) // mauve
	ColorText            = tcell.NewHexColor(0xcdd6f4)
	ColorTextMuted       = tcell.NewHexColor(0x6c7086)
	ColorSuccess         = tcell.NewHexColor(0xa6e3a1) // green
	ColorWarning         = tcell.NewHexColor(0xf9e2af) // yellow
	ColorError           = tcell.NewHexColor(0xf38ba8) // red
	ColorBorder          = tcell.NewHexColor(0x45475a)
	ColorSelected        = tcell.NewHexColor(0x89b4fa)
	ColorSelectedText    = tcell.NewHexColor(0x1e1e2e)
)

// Status icons
const (
	IconRunning  = "●"
	IconPaused   = "◐"
	IconPending  = "○"
	IconDone     = "✓"
	IconFailed   = "✗"
	IconBlocked  = "◼"
	IconSpinning = "⟳"
)

func StatusIcon(status string) (string, tcell.Color) {
	switch status {
	case "running":
		return IconRunning, ColorSuccess
	case "paused":
		return IconPaused, ColorWarning
	case "blocked":
		return IconBlocked, ColorWarning
	case "failed":
		return IconFailed, ColorError
	case "completed", "resolved":
		return IconDone, ColorTextMuted
	case "classifying", "finalizing":
		return IconSpinning, ColorAccent
	case "created", "planned":
		return IconPending, ColorTextMuted
	default:
		return IconPending, ColorTextMuted
	}
}

// ConnIcon maps a connection state name to a header glyph and color.
func ConnIcon(state string) (string, tcell.Color) {
	switch state {
	case "connected":
		return "●", ColorSuccess
	case "connecting", "reconnecting":
		return "◐", ColorWarning
	default:
		return "○", ColorError
	}
}
