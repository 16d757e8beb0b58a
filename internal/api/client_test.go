package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taskdeck/taskdeck/internal/api"
)

func TestListTasks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tasks" {
			t.Errorf("path = %q, want /api/tasks", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("auth header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"TASK-001","title":"Fix login","weight":"small","status":"running","current_phase":"implement"}]`))
	}))
	defer srv.Close()

	c := api.New(srv.URL, "tok-1")
	tasks, err := c.ListTasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if tasks[0].ID != "TASK-001" || tasks[0].Status != "running" {
		t.Errorf("unexpected task: %+v", tasks[0])
	}
}

func TestGetTaskNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := api.New(srv.URL, "")
	if _, err := c.GetTask(context.Background(), "TASK-404"); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestPauseTaskPostsControlEndpoint(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.Write([]byte(`{"status":"paused"}`))
	}))
	defer srv.Close()

	c := api.New(srv.URL, "")
	if err := c.PauseTask(context.Background(), "TASK-007"); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/tasks/TASK-007/pause" {
		t.Errorf("got %s %s", gotMethod, gotPath)
	}
}

func TestGetSessionMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/session" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"active_tasks":3,"total_tokens":120000,"total_cost_usd":1.25}`))
	}))
	defer srv.Close()

	c := api.New(srv.URL, "")
	m, err := c.GetSessionMetrics(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if m.ActiveTasks != 3 || m.TotalTokens != 120000 {
		t.Errorf("unexpected metrics: %+v", m)
	}
}
