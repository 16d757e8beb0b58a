package dialogs

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const helpText = `[yellow]Dashboard Keys[-]

  [green]↑/↓[-]      Navigate tasks
  [green]Enter/w[-]  Watch task (focus its event stream)
  [green]p[-]        Pause task
  [green]r[-]        Resume task
  [green]c[-]        Cancel task
  [green]u[-]        Usage and cost
  [green]?[-]        This help
  [green]q[-]        Quit

[yellow]Connection[-]

  The header shows the live connection state. The dashboard
  reconnects on its own after a dropped connection and falls
  back to periodic refresh when the stream is unavailable.

Press [green]Escape[-] or [green]?[-] to close.`

func HelpDialog(onClose func()) *tview.TextView {
	tv := tview.NewTextView()
	tv.SetBorder(true).SetTitle(" Help ").SetTitleAlign(tview.AlignLeft)
	tv.SetDynamicColors(true)
	tv.SetBackgroundColor(tcell.ColorDefault)
	tv.SetText(helpText)
	tv.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Rune() == '?' {
			onClose()
			return nil
		}
		return event
	})
	return tv
}
