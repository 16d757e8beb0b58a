package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"time"

	"github.com/taskdeck/taskdeck/internal/realtime"
)

// Config holds notification settings.
type Config struct {
	Enabled bool   `json:"enabled"`
	Webhook string `json:"webhook"`
	NtfyURL string `json:"ntfy"`
}

// Notifier fires system notifications and optional webhook POSTs when tasks
// finish or fail.
type Notifier struct {
	cfg    Config
	logger *slog.Logger
	http   *http.Client
}

// New returns a Notifier with the given config.
func New(cfg Config, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		logger: logger,
		http:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Attach registers the notifier on the client's completion and error
// streams. The returned func detaches it.
func (n *Notifier) Attach(c *realtime.Client) func() {
	offComplete := c.On(realtime.KindComplete, n.handleComplete)
	offError := c.On(realtime.KindError, n.handleError)
	return func() {
		offComplete()
		offError()
	}
}

func (n *Notifier) handleComplete(ev realtime.Event) {
	var payload struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(ev.Data, &payload)
	if payload.Status == "" {
		payload.Status = "completed"
	}

	title := fmt.Sprintf("Task %s %s", ev.TaskID, payload.Status)
	priority := 3
	tags := []string{"white_check_mark"}
	if payload.Status == "failed" {
		priority = 4
		tags = []string{"x"}
	}
	n.send(title, title, priority, tags)
}

func (n *Notifier) handleError(ev realtime.Event) {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(ev.Data, &payload)
	msg := payload.Error
	if msg == "" {
		msg = payload.Message
	}

	title := fmt.Sprintf("Task %s error", ev.TaskID)
	if ev.TaskID == "" {
		title = "Server error"
	}
	n.send(title, msg, 4, []string{"rotating_light"})
}

func (n *Notifier) send(title, message string, priority int, tags []string) {
	if !n.cfg.Enabled {
		return
	}

	n.sendSystemNotification(title)

	if n.cfg.Webhook != "" {
		n.sendWebhook(title, message)
	}
	if n.cfg.NtfyURL != "" {
		n.sendNtfy(title, message, priority, tags)
	}
}

func (n *Notifier) sendSystemNotification(msg string) {
	script := fmt.Sprintf(
		`display notification %q with title "taskdeck"`,
		msg,
	)
	exec.Command("osascript", "-e", script).Run()
}

type webhookPayload struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (n *Notifier) sendWebhook(title, message string) {
	payload := webhookPayload{
		Title:     title,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	resp, err := n.http.Post(n.cfg.Webhook, "application/json", bytes.NewReader(data))
	if err != nil {
		n.logger.Warn("webhook post failed", "err", err)
		return
	}
	resp.Body.Close()
}

type ntfyPayload struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Priority int      `json:"priority"`
	Tags     []string `json:"tags"`
}

func (n *Notifier) sendNtfy(title, message string, priority int, tags []string) {
	payload := ntfyPayload{
		Title:    title,
		Message:  message,
		Priority: priority,
		Tags:     tags,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	resp, err := n.http.Post(n.cfg.NtfyURL, "application/json", bytes.NewReader(data))
	if err != nil {
		n.logger.Warn("ntfy post failed", "err", err)
		return
	}
	resp.Body.Close()
}
