package dialogs

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/taskdeck/taskdeck/internal/usage"
)

// UsageDialog is a tview.TextView-based dialog showing session token usage
// and estimated cost, plus a per-task breakdown.
type UsageDialog struct {
	*tview.TextView
	tracker  *usage.Tracker
	taskLine func(taskID string) string
	onClose  func()
}

// NewUsageDialog creates a usage dialog fed from the tracker. taskTitle maps
// a task id to its display title; ids with no known title render as-is.
// taskIDs lists the tasks to break down. onClose is called on Q or Escape.
func NewUsageDialog(tracker *usage.Tracker, taskIDs func() []string, taskTitle func(string) string, onClose func()) *UsageDialog {
	d := &UsageDialog{
		TextView: tview.NewTextView(),
		tracker:  tracker,
		onClose:  onClose,
	}
	d.SetBorder(true).SetTitle(" Usage ").SetTitleAlign(tview.AlignLeft)
	d.SetDynamicColors(true)
	d.SetBackgroundColor(tcell.ColorDefault)

	d.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyEscape, event.Rune() == 'q', event.Rune() == 'Q':
			onClose()
			return nil
		case event.Rune() == 'r', event.Rune() == 'R':
			d.SetText(d.buildText(taskIDs(), taskTitle))
			return nil
		}
		return event
	})

	d.SetText(d.buildText(taskIDs(), taskTitle))
	return d
}

func (d *UsageDialog) buildText(taskIDs []string, taskTitle func(string) string) string {
	var sb strings.Builder
	snap := d.tracker.Session()

	sb.WriteString("\n  [yellow]Session[-]\n")
	sb.WriteString(fmt.Sprintf("  Tokens     %s\n", usage.FormatTokens(snap.TotalTokens)))
	sb.WriteString(fmt.Sprintf("  Input      %s\n", usage.FormatTokens(snap.InputTokens)))
	sb.WriteString(fmt.Sprintf("  Output     %s\n", usage.FormatTokens(snap.OutputTokens)))
	sb.WriteString(fmt.Sprintf("  Cost       $%.2f\n", snap.EstimatedCostUSD))
	if snap.DurationSeconds > 0 {
		sb.WriteString(fmt.Sprintf("  Duration   %s\n",
			(time.Duration(snap.DurationSeconds) * time.Second).String()))
	}
	if snap.IsPaused {
		sb.WriteString("  [yellow]Session is paused[-]\n")
	}

	type row struct {
		id     string
		counts usage.TokenCounts
	}
	var rows []row
	for _, id := range taskIDs {
		if counts, ok := d.tracker.TaskTokens(id); ok {
			rows = append(rows, row{id: id, counts: counts})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].counts.TotalTokens > rows[j].counts.TotalTokens
	})

	if len(rows) > 0 {
		sb.WriteString("\n  [yellow]Per Task[-]\n")
		for _, r := range rows {
			title := taskTitle(r.id)
			if runes := []rune(title); len(runes) > 30 {
				title = string(runes[:28]) + ".."
			}
			sb.WriteString(fmt.Sprintf("  %-30s %10s\n",
				title, usage.FormatTokens(r.counts.TotalTokens)))
		}
	} else {
		sb.WriteString("\n  [dim]No per-task usage reported yet.[-]\n")
	}

	sb.WriteString("\n  [green]R[-] refresh  [green]Q/Esc[-] close")
	return sb.String()
}
