// Package api is a thin request/response wrapper around the orchestration
// server's REST endpoints. Real-time updates arrive over the realtime
// package's socket; this client covers initial loads, periodic refreshes,
// and control fallbacks for when the socket is down.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Task is the subset of the server's task record the dashboard renders.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Weight       string     `json:"weight"`
	Status       string     `json:"status"`
	CurrentPhase string     `json:"current_phase,omitempty"`
	Branch       string     `json:"branch,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// SessionMetrics summarizes server-wide activity for the status bar.
type SessionMetrics struct {
	ActiveTasks  int     `json:"active_tasks"`
	TotalTokens  int64   `json:"total_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// Client talks to one server. Construct with New.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a client for the server at baseURL (scheme + host, no path).
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// ListTasks fetches every task known to the server.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	if err := c.getJSON(ctx, "/api/tasks", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask fetches a single task by id.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var t Task
	if err := c.getJSON(ctx, "/api/tasks/"+url.PathEscape(id), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetSessionMetrics fetches server-wide session metrics.
func (c *Client) GetSessionMetrics(ctx context.Context) (*SessionMetrics, error) {
	var m SessionMetrics
	if err := c.getJSON(ctx, "/api/session", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// PauseTask issues the REST pause control. Prefer the socket command when
// connected; this is the fallback path.
func (c *Client) PauseTask(ctx context.Context, id string) error {
	return c.post(ctx, "/api/tasks/"+url.PathEscape(id)+"/pause")
}

// ResumeTask issues the REST resume control.
func (c *Client) ResumeTask(ctx context.Context, id string) error {
	return c.post(ctx, "/api/tasks/"+url.PathEscape(id)+"/resume")
}

// Health reports whether the server answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]any
	return c.getJSON(ctx, "/api/health", &out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d for %s: %s", resp.StatusCode, path, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d for %s: %s", resp.StatusCode, path, strings.TrimSpace(string(body)))
	}
	return nil
}

func (c *Client) auth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
