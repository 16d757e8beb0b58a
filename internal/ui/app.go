package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/db"
	"github.com/taskdeck/taskdeck/internal/notify"
	"github.com/taskdeck/taskdeck/internal/realtime"
	"github.com/taskdeck/taskdeck/internal/refresh"
	"github.com/taskdeck/taskdeck/internal/ui/dialogs"
	"github.com/taskdeck/taskdeck/internal/usage"
)

// historySeed caps how many stored events are replayed at startup.
const historySeed = 500

type App struct {
	tapp     *tview.Application
	pages    *tview.Pages
	home     *Home
	store    *db.DB
	rest     *api.Client
	rt       *realtime.Client
	tracker  *usage.Tracker
	ref      *refresh.Refresher
	notifier *notify.Notifier
	cfg      config.Config
	logger   *slog.Logger
	detach   []func()
}

func NewApp(store *db.DB, cfg config.Config, logger *slog.Logger) *App {
	a := &App{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}

	a.tapp = tview.NewApplication()
	a.pages = tview.NewPages()
	a.home = NewHome(a.tapp)

	a.rest = api.New(cfg.Server.URL, cfg.Server.Token)
	a.rt = realtime.Shared(realtime.Config{
		ServerURL:         cfg.Server.URL,
		Token:             cfg.Server.Token,
		KeepaliveInterval: cfg.Reconnect.KeepaliveInterval(),
		BackoffBase:       cfg.Reconnect.BackoffBase(),
		MaxReconnects:     cfg.Reconnect.MaxAttempts,
	}, logger)

	a.tracker = usage.NewTracker(logger)
	a.detach = append(a.detach, a.tracker.Attach(a.rt))
	a.home.SetTokenLookup(a.tracker.TaskTokens)

	a.notifier = notify.New(notify.Config{
		Enabled: cfg.Notifications.Enabled,
		Webhook: cfg.Notifications.Webhook,
		NtfyURL: cfg.Notifications.NtfyURL,
	}, logger)
	a.detach = append(a.detach, a.notifier.Attach(a.rt))

	a.ref = refresh.New(a.rest, cfg.Refresh.Interval(), func(tasks []api.Task) {
		a.tapp.QueueUpdateDraw(func() {
			a.home.SetTasks(tasks)
		})
	}, func(m api.SessionMetrics) {
		a.tracker.SetSession(usage.SessionSnapshot{
			TotalTokens:      int(m.TotalTokens),
			EstimatedCostUSD: m.TotalCostUSD,
			TasksRunning:     m.ActiveTasks,
		})
		a.tapp.QueueUpdateDraw(func() {
			a.home.SetSession(a.tracker.Session())
		})
	}, logger)

	a.registerEventHandlers()

	a.pages.AddPage("home", a.home, true, true)
	a.tapp.SetRoot(a.pages, true).EnableMouse(false)
	a.tapp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case '?':
			a.showHelp()
			return nil
		case 'u':
			a.showUsage()
			return nil
		}
		return event
	})

	a.home.SetCallbacks(
		a.onPause,
		a.onResume,
		a.onCancel,
		a.onWatch,
		func() { a.tapp.Stop() },
	)

	return a
}

func (a *App) Run() error {
	if a.cfg.Server.Token != "" {
		if sub := auth.Subject(a.cfg.Server.Token); sub != "" {
			a.logger.Info("authenticated", "subject", sub)
		}
		if auth.ExpiresWithin(a.cfg.Server.Token, 24*time.Hour) {
			exp, _ := auth.TokenExpiry(a.cfg.Server.Token)
			a.logger.Warn("server token expires soon", "expires", exp)
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.rest.Health(ctx); err != nil {
			a.logger.Warn("server health check failed", "url", a.cfg.Server.URL, "err", err)
		}
	}()

	a.loadHistory()

	a.rt.SetPrimarySubscription(realtime.AllTasks)
	a.rt.Connect(realtime.AllTasks)
	defer a.rt.Disconnect()

	a.ref.Start()
	defer a.ref.Stop()

	defer func() {
		for _, off := range a.detach {
			off()
		}
	}()

	return a.tapp.Run()
}

// registerEventHandlers subscribes the UI to the event stream. Handlers run
// on the socket's read goroutine, so every widget touch goes through
// QueueUpdateDraw.
func (a *App) registerEventHandlers() {
	a.detach = append(a.detach,
		a.rt.OnStatusChange(func(s realtime.State) {
			a.tapp.QueueUpdateDraw(func() {
				a.home.SetConnState(s.String())
			})
		}),
		a.rt.On(realtime.KindAll, a.persistEvent),
		a.rt.On(realtime.KindTaskCreated, a.onTaskRecord),
		a.rt.On(realtime.KindTaskUpdated, a.onTaskRecord),
		a.rt.On(realtime.KindTaskDeleted, func(ev realtime.Event) {
			a.tapp.QueueUpdateDraw(func() {
				a.home.RemoveTask(ev.TaskID)
			})
		}),
		a.rt.On(realtime.KindState, func(ev realtime.Event) {
			var payload struct {
				Status string `json:"status"`
				State  string `json:"state"`
			}
			if err := json.Unmarshal(ev.Data, &payload); err != nil {
				return
			}
			status := payload.Status
			if status == "" {
				status = payload.State
			}
			if status == "" {
				return
			}
			a.tapp.QueueUpdateDraw(func() {
				a.home.SetTaskStatus(ev.TaskID, status)
			})
		}),
		a.rt.On(realtime.KindPhase, func(ev realtime.Event) {
			var payload struct {
				Phase string `json:"phase"`
			}
			if err := json.Unmarshal(ev.Data, &payload); err != nil {
				return
			}
			a.tapp.QueueUpdateDraw(func() {
				a.home.SetTaskPhase(ev.TaskID, payload.Phase)
			})
		}),
		a.rt.On(realtime.KindTranscript, func(ev realtime.Event) {
			line := transcriptLine(ev.Data)
			if line == "" {
				return
			}
			a.tapp.QueueUpdateDraw(func() {
				a.home.AppendTranscript(ev.TaskID, line)
			})
		}),
		a.rt.On(realtime.KindTokens, func(ev realtime.Event) {
			// Tracker already recorded the counts; redraw the column.
			a.tapp.QueueUpdateDraw(func() {
				a.home.renderTable()
			})
		}),
		a.rt.On(realtime.KindSessionUpdate, func(ev realtime.Event) {
			a.tapp.QueueUpdateDraw(func() {
				a.home.SetSession(a.tracker.Session())
			})
		}),
		a.rt.On(realtime.KindError, func(ev realtime.Event) {
			var payload struct {
				Error   string `json:"error"`
				Message string `json:"message"`
			}
			_ = json.Unmarshal(ev.Data, &payload)
			msg := payload.Error
			if msg == "" {
				msg = payload.Message
			}
			a.logger.Warn("server error event", "task", ev.TaskID, "err", msg)
		}),
	)
}

func (a *App) onTaskRecord(ev realtime.Event) {
	var task api.Task
	if err := json.Unmarshal(ev.Data, &task); err != nil {
		a.logger.Debug("bad task payload", "task", ev.TaskID, "err", err)
		return
	}
	if task.ID == "" {
		task.ID = ev.TaskID
	}
	a.tapp.QueueUpdateDraw(func() {
		a.home.UpsertTask(task)
	})
}

func (a *App) persistEvent(ev realtime.Event) {
	if a.store == nil || !a.cfg.History.Enabled {
		return
	}
	if ev.Kind == realtime.KindHeartbeat {
		return
	}
	err := a.store.SaveEvent(&db.EventRow{
		Kind:   string(ev.Kind),
		TaskID: ev.TaskID,
		Data:   string(ev.Data),
		Time:   ev.Time,
	})
	if err != nil {
		a.logger.Debug("event persist failed", "err", err)
	}
}

// transcriptLine extracts displayable text from a transcript payload. The
// server has published both bare strings and {"content": ...} objects.
func transcriptLine(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var payload struct {
		Content string `json:"content"`
		Text    string `json:"text"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Content != "" {
		return payload.Content
	}
	return payload.Text
}

// loadHistory replays stored transcript events into the pane so a restarted
// dashboard shows recent activity before live events arrive.
func (a *App) loadHistory() {
	if a.store == nil || !a.cfg.History.Enabled {
		return
	}
	rows, err := a.store.RecentEvents("", historySeed)
	if err != nil {
		a.logger.Warn("history load failed", "err", err)
		return
	}
	// RecentEvents returns newest first; replay oldest first.
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if realtime.Kind(row.Kind) != realtime.KindTranscript {
			continue
		}
		if line := transcriptLine(json.RawMessage(row.Data)); line != "" {
			a.home.AppendTranscript(row.TaskID, line)
		}
	}
}

func (a *App) onWatch(task api.Task) {
	a.rt.Subscribe(task.ID)
	// Refresh the row from REST; the stream only carries deltas from now on.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		fresh, err := a.rest.GetTask(ctx, task.ID)
		if err != nil {
			a.logger.Debug("task detail fetch failed", "task", task.ID, "err", err)
			return
		}
		a.tapp.QueueUpdateDraw(func() {
			a.home.UpsertTask(*fresh)
		})
	}()
}

func (a *App) onPause(task api.Task) {
	a.control(task, realtime.ActionPause, a.rest.PauseTask)
}

func (a *App) onResume(task api.Task) {
	a.control(task, realtime.ActionResume, a.rest.ResumeTask)
}

func (a *App) onCancel(task api.Task) {
	modal := dialogs.ConfirmDialog(
		fmt.Sprintf("Cancel task %q?\nThis stops its execution.", task.Title),
		"Cancel Task",
		func() {
			a.closeDialog("confirm-cancel")
			a.rt.Command(task.ID, realtime.ActionCancel)
		},
		func() { a.closeDialog("confirm-cancel") },
	)
	a.pages.AddPage("confirm-cancel", modal, true, true)
}

// control sends the command over the socket when connected, otherwise falls
// back to the REST endpoint.
func (a *App) control(task api.Task, action realtime.Action, rest func(context.Context, string) error) {
	if a.rt.State() == realtime.StateConnected {
		a.rt.Command(task.ID, action)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := rest(ctx, task.ID); err != nil {
			a.logger.Warn("control fallback failed", "task", task.ID, "action", action, "err", err)
		}
		a.ref.RunOnce()
	}()
}

func (a *App) showDialog(name string, widget tview.Primitive, width, height int) {
	modal := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexColumn).
			AddItem(nil, 0, 1, false).
			AddItem(widget, width, 0, true).
			AddItem(nil, 0, 1, false), height, 0, true).
		AddItem(nil, 0, 1, false)
	a.pages.AddPage(name, modal, true, true)
	a.tapp.SetFocus(widget)
}

func (a *App) closeDialog(name string) {
	a.pages.RemovePage(name)
	a.tapp.SetFocus(a.home.table)
}

func (a *App) showHelp() {
	help := dialogs.HelpDialog(func() {
		a.closeDialog("help")
	})
	a.showDialog("help", help, 60, 26)
}

func (a *App) showUsage() {
	d := dialogs.NewUsageDialog(a.tracker,
		func() []string {
			ids := make([]string, 0, len(a.home.tasks))
			for _, t := range a.home.tasks {
				ids = append(ids, t.ID)
			}
			return ids
		},
		func(id string) string {
			for _, t := range a.home.tasks {
				if t.ID == id {
					return t.Title
				}
			}
			return id
		},
		func() { a.closeDialog("usage") },
	)
	a.showDialog("usage", d, 60, 24)
}
