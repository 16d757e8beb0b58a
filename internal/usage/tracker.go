package usage

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/taskdeck/taskdeck/internal/realtime"
)

// TokenCounts mirrors the token usage payload the server publishes per task.
type TokenCounts struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
	TotalTokens              int `json:"total_tokens"`
}

// EffectiveTotal returns total tokens including cached input.
func (c TokenCounts) EffectiveTotal() int {
	return c.InputTokens + c.CacheCreationInputTokens + c.CacheReadInputTokens + c.OutputTokens
}

// SessionSnapshot is the server-wide metrics payload from session updates.
type SessionSnapshot struct {
	DurationSeconds  float64 `json:"duration_seconds"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	TasksRunning     int     `json:"tasks_running"`
	IsPaused         bool    `json:"is_paused"`
}

// Tracker accumulates token usage from the event stream so the dashboard
// can render per-task and session totals without polling.
type Tracker struct {
	mu      sync.Mutex
	tasks   map[string]TokenCounts
	session SessionSnapshot
	logger  *slog.Logger
}

func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{
		tasks:  make(map[string]TokenCounts),
		logger: logger,
	}
}

// Attach registers the tracker on the client's token and session streams.
// The returned func detaches it.
func (t *Tracker) Attach(c *realtime.Client) func() {
	offTokens := c.On(realtime.KindTokens, t.handleTokens)
	offSession := c.On(realtime.KindSessionUpdate, t.handleSession)
	offDeleted := c.On(realtime.KindTaskDeleted, t.handleDeleted)
	return func() {
		offTokens()
		offSession()
		offDeleted()
	}
}

func (t *Tracker) handleTokens(ev realtime.Event) {
	var counts TokenCounts
	if err := json.Unmarshal(ev.Data, &counts); err != nil {
		t.logger.Debug("bad token payload", "task", ev.TaskID, "err", err)
		return
	}
	t.mu.Lock()
	t.tasks[ev.TaskID] = counts
	t.mu.Unlock()
}

func (t *Tracker) handleSession(ev realtime.Event) {
	var snap SessionSnapshot
	if err := json.Unmarshal(ev.Data, &snap); err != nil {
		t.logger.Debug("bad session payload", "err", err)
		return
	}
	t.mu.Lock()
	t.session = snap
	t.mu.Unlock()
}

func (t *Tracker) handleDeleted(ev realtime.Event) {
	t.mu.Lock()
	delete(t.tasks, ev.TaskID)
	t.mu.Unlock()
}

// TaskTokens returns the last reported counts for a task.
func (t *Tracker) TaskTokens(taskID string) (TokenCounts, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts, ok := t.tasks[taskID]
	return counts, ok
}

// Session returns the latest session-wide snapshot.
func (t *Tracker) Session() SessionSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

// SetSession replaces the session snapshot. Used by the REST metrics poll;
// pushed session updates carry more fields and overwrite it in turn.
func (t *Tracker) SetSession(snap SessionSnapshot) {
	t.mu.Lock()
	t.session = snap
	t.mu.Unlock()
}

// FormatTokens renders a token count for display, e.g. "127,500".
func FormatTokens(n int) string {
	return humanize.Comma(int64(n))
}
