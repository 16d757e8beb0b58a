package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/usage"
)

const transcriptKeep = 200

// Home is the main screen containing the task list and transcript pane.
type Home struct {
	*tview.Flex
	app        *tview.Application
	table      *tview.Table
	transcript *tview.TextView
	header     *tview.TextView
	footer     *tview.TextView

	tasks       []api.Task
	selected    int
	connState   string
	session     usage.SessionSnapshot
	transcripts map[string][]string

	tokensFor func(taskID string) (usage.TokenCounts, bool)

	onPause  func(task api.Task)
	onResume func(task api.Task)
	onCancel func(task api.Task)
	onWatch  func(task api.Task)
	onQuit   func()
}

func NewHome(app *tview.Application) *Home {
	h := &Home{
		app:         app,
		connState:   "disconnected",
		transcripts: make(map[string][]string),
		tokensFor:   func(string) (usage.TokenCounts, bool) { return usage.TokenCounts{}, false },
	}

	h.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	h.header.SetBackgroundColor(ColorBackgroundPanel)

	h.table = tview.NewTable().
		SetSelectable(true, false).
		SetSelectedStyle(tcell.StyleDefault.
			Background(ColorSelected).
			Foreground(ColorSelectedText))
	h.table.SetBackgroundColor(ColorBackground)
	h.table.SetBorderPadding(0, 0, 0, 0)

	h.transcript = tview.NewTextView().
		SetDynamicColors(false).
		SetScrollable(true).
		SetWrap(false)
	h.transcript.SetBackgroundColor(ColorBackground)

	h.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	h.footer.SetBackgroundColor(ColorBackgroundPanel)
	h.footer.SetText(
		"[green]↑↓[-] navigate  [green]Enter/w[-] watch  [green]p[-] pause  " +
			"[green]r[-] resume  [green]c[-] cancel  [green]u[-] usage  [green]?[-] help  [green]q[-] quit")

	separator := tview.NewBox().SetBackgroundColor(ColorBorder)

	content := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(h.table, 0, 40, true).
		AddItem(separator, 1, 0, false).
		AddItem(h.transcript, 0, 60, false)

	h.Flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(h.header, 1, 0, false).
		AddItem(content, 0, 1, true).
		AddItem(h.footer, 1, 0, false)

	h.setupInput()
	return h
}

func (h *Home) SetCallbacks(
	onPause func(api.Task),
	onResume func(api.Task),
	onCancel func(api.Task),
	onWatch func(api.Task),
	onQuit func(),
) {
	h.onPause = onPause
	h.onResume = onResume
	h.onCancel = onCancel
	h.onWatch = onWatch
	h.onQuit = onQuit
}

// SetTokenLookup installs the per-task token source used by the task rows.
func (h *Home) SetTokenLookup(fn func(taskID string) (usage.TokenCounts, bool)) {
	h.tokensFor = fn
}

// SetTasks replaces the whole task list, e.g. after a REST refresh.
func (h *Home) SetTasks(tasks []api.Task) {
	h.tasks = tasks
	h.sortTasks()
	h.renderTable()
	h.updateHeader()
}

// UpsertTask inserts or updates a single task from the event stream.
func (h *Home) UpsertTask(task api.Task) {
	for i, t := range h.tasks {
		if t.ID == task.ID {
			h.tasks[i] = task
			h.sortTasks()
			h.renderTable()
			h.updateHeader()
			return
		}
	}
	h.tasks = append(h.tasks, task)
	h.sortTasks()
	h.renderTable()
	h.updateHeader()
}

// RemoveTask drops a task from the list.
func (h *Home) RemoveTask(taskID string) {
	for i, t := range h.tasks {
		if t.ID == taskID {
			h.tasks = append(h.tasks[:i], h.tasks[i+1:]...)
			break
		}
	}
	delete(h.transcripts, taskID)
	h.renderTable()
	h.updateHeader()
}

// SetTaskStatus updates a single task's status in place. Unknown tasks are
// ignored; the next refresh will pick them up.
func (h *Home) SetTaskStatus(taskID, status string) {
	for i, t := range h.tasks {
		if t.ID == taskID {
			h.tasks[i].Status = status
			h.renderTable()
			h.updateHeader()
			return
		}
	}
}

// SetTaskPhase updates a single task's current phase in place.
func (h *Home) SetTaskPhase(taskID, phase string) {
	for i, t := range h.tasks {
		if t.ID == taskID {
			h.tasks[i].CurrentPhase = phase
			h.renderTable()
			return
		}
	}
}

// SetConnState updates the connection indicator in the header.
func (h *Home) SetConnState(state string) {
	h.connState = state
	h.updateHeader()
}

// SetSession updates the session metrics shown in the header.
func (h *Home) SetSession(snap usage.SessionSnapshot) {
	h.session = snap
	h.updateHeader()
}

// AppendTranscript adds one transcript line for a task, keeping a bounded
// tail. The pane refreshes when the task is selected.
func (h *Home) AppendTranscript(taskID, line string) {
	lines := append(h.transcripts[taskID], line)
	if len(lines) > transcriptKeep {
		lines = lines[len(lines)-transcriptKeep:]
	}
	h.transcripts[taskID] = lines

	if task, ok := h.selectedTask(); ok && task.ID == taskID {
		h.showTranscript(taskID)
	}
}

func (h *Home) sortTasks() {
	// Running tasks first, then by most recent update.
	sort.SliceStable(h.tasks, func(i, j int) bool {
		ri, rj := h.tasks[i].Status == "running", h.tasks[j].Status == "running"
		if ri != rj {
			return ri
		}
		return updatedAt(h.tasks[i]).After(updatedAt(h.tasks[j]))
	})
}

func (h *Home) renderTable() {
	h.table.Clear()
	for i, task := range h.tasks {
		icon, color := StatusIcon(task.Status)
		title := truncate(task.Title, 28)
		phase := task.CurrentPhase
		if phase == "" {
			phase = "-"
		}
		tokens := ""
		if counts, ok := h.tokensFor(task.ID); ok {
			tokens = usage.FormatTokens(counts.TotalTokens)
		}
		age := ""
		if ts := updatedAt(task); !ts.IsZero() {
			age = humanize.Time(ts)
		}
		text := fmt.Sprintf(" %s %-28s %-12s %8s  %s", icon, title, phase, tokens, age)
		cell := tview.NewTableCell(text).
			SetTextColor(color).
			SetBackgroundColor(ColorBackground).
			SetExpansion(1).
			SetSelectable(true)
		h.table.SetCell(i, 0, cell)
	}

	// Clamp selection
	if h.selected >= len(h.tasks) && len(h.tasks) > 0 {
		h.selected = len(h.tasks) - 1
	}
	if len(h.tasks) > 0 {
		h.table.Select(h.selected, 0)
	}

	h.table.SetSelectionChangedFunc(func(row, col int) {
		h.selected = row
		if task, ok := h.selectedTask(); ok {
			h.showTranscript(task.ID)
		}
	})
}

func (h *Home) updateHeader() {
	running, paused := 0, 0
	for _, t := range h.tasks {
		switch t.Status {
		case "running":
			running++
		case "paused":
			paused++
		}
	}
	connIcon, _ := ConnIcon(h.connState)
	connColor := "red"
	switch h.connState {
	case "connected":
		connColor = "green"
	case "connecting", "reconnecting":
		connColor = "yellow"
	}
	h.header.SetText(fmt.Sprintf(
		"[blue]TASKDECK[-]  [%s]%s %s[-]   [green]● %d running[-]  [yellow]◐ %d paused[-]  %d total   %s tok  $%.2f",
		connColor, connIcon, h.connState,
		running, paused, len(h.tasks),
		usage.FormatTokens(h.session.TotalTokens), h.session.EstimatedCostUSD))
}

func (h *Home) showTranscript(taskID string) {
	lines := h.transcripts[taskID]
	h.transcript.SetText(strings.Join(lines, "\n"))
	h.transcript.ScrollToEnd()
}

// truncate shortens s to at most max display runes, never splitting a
// multibyte character.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-2]) + ".."
}

func updatedAt(t api.Task) time.Time {
	if t.UpdatedAt != nil {
		return *t.UpdatedAt
	}
	return time.Time{}
}

func (h *Home) selectedTask() (api.Task, bool) {
	if h.selected < 0 || h.selected >= len(h.tasks) {
		return api.Task{}, false
	}
	return h.tasks[h.selected], true
}

func (h *Home) setupInput() {
	h.table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		row, _ := h.table.GetSelection()
		h.selected = row

		if event.Key() == tcell.KeyEnter {
			if task, ok := h.selectedTask(); ok && h.onWatch != nil {
				h.onWatch(task)
			}
			return nil
		}

		switch event.Rune() {
		case 'w':
			if task, ok := h.selectedTask(); ok && h.onWatch != nil {
				h.onWatch(task)
			}
			return nil
		case 'p':
			if task, ok := h.selectedTask(); ok && h.onPause != nil {
				h.onPause(task)
			}
			return nil
		case 'r':
			if task, ok := h.selectedTask(); ok && h.onResume != nil {
				h.onResume(task)
			}
			return nil
		case 'c':
			if task, ok := h.selectedTask(); ok && h.onCancel != nil {
				h.onCancel(task)
			}
			return nil
		case 'q':
			if h.onQuit != nil {
				h.onQuit()
			}
			return nil
		}
		return event
	})
}
