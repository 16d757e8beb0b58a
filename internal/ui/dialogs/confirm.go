package dialogs

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// ConfirmDialog shows a modal with a message and explicit confirm/cancel
// buttons. onConfirm runs on the confirm button; onCancel on cancel or
// Escape.
func ConfirmDialog(message, confirmLabel string, onConfirm func(), onCancel func()) *tview.Modal {
	modal := tview.NewModal().
		SetText(message).
		AddButtons([]string{confirmLabel, "Cancel"}).
		SetDoneFunc(func(_ int, label string) {
			if label == confirmLabel {
				onConfirm()
			} else {
				onCancel()
			}
		})
	modal.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			onCancel()
			return nil
		}
		return event
	})
	return modal
}
