package notify

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/taskdeck/taskdeck/internal/realtime"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCompleteEventPostsNtfy(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	n := New(Config{
		Enabled: true,
		NtfyURL: srv.URL + "/test-topic",
	}, discardLogger())

	n.handleComplete(realtime.Event{
		Kind:   realtime.KindComplete,
		TaskID: "TASK-042",
		Data:   json.RawMessage(`{"status":"completed"}`),
	})

	if received == nil {
		t.Fatal("no POST received")
	}
	if received["title"] != "Task TASK-042 completed" {
		t.Errorf("unexpected title: %v", received["title"])
	}
}

func TestFailedTaskRaisesPriority(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	n := New(Config{Enabled: true, NtfyURL: srv.URL}, discardLogger())
	n.handleComplete(realtime.Event{
		Kind:   realtime.KindComplete,
		TaskID: "TASK-007",
		Data:   json.RawMessage(`{"status":"failed"}`),
	})

	if received == nil {
		t.Fatal("no POST received")
	}
	if received["priority"] != float64(4) {
		t.Errorf("unexpected priority: %v", received["priority"])
	}
}

func TestErrorEventWithoutTaskIsServerError(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	n := New(Config{Enabled: true, NtfyURL: srv.URL}, discardLogger())
	n.handleError(realtime.Event{
		Kind: realtime.KindError,
		Data: json.RawMessage(`{"message":"connection lost"}`),
	})

	if received == nil {
		t.Fatal("no POST received")
	}
	if received["title"] != "Server error" {
		t.Errorf("unexpected title: %v", received["title"])
	}
	if received["message"] != "connection lost" {
		t.Errorf("unexpected message: %v", received["message"])
	}
}

func TestWebhookErrorLogged(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// Invalid URL forces a POST error.
	n := New(Config{Enabled: true, Webhook: "http://127.0.0.1:1"}, logger)
	n.handleComplete(realtime.Event{TaskID: "t1", Data: json.RawMessage(`{}`)})

	if !strings.Contains(buf.String(), "webhook") {
		t.Errorf("expected warn log mentioning webhook, got: %q", buf.String())
	}
}

func TestDisabledNoOp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("disabled notifier must not POST")
	}))
	defer srv.Close()

	n := New(Config{Enabled: false, NtfyURL: srv.URL}, discardLogger())
	n.handleComplete(realtime.Event{TaskID: "t1", Data: json.RawMessage(`{}`)})
}
