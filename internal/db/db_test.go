package db

import (
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return d
}

func TestSaveEventGeneratesID(t *testing.T) {
	d := openTestDB(t)

	e := &EventRow{Kind: "state", TaskID: "t1", Data: `{"state":"running"}`, Time: time.Now()}
	if err := d.SaveEvent(e); err != nil {
		t.Fatalf("SaveEvent: %v", err)
	}
	if e.ID == "" {
		t.Fatal("expected generated ID")
	}
	if e.ReceivedAt.IsZero() {
		t.Fatal("expected ReceivedAt to be set")
	}
}

func TestRecentEventsNewestFirst(t *testing.T) {
	d := openTestDB(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		e := &EventRow{
			Kind:   "transcript",
			TaskID: "t1",
			Data:   "line",
			Time:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := d.SaveEvent(e); err != nil {
			t.Fatalf("SaveEvent: %v", err)
		}
	}

	events, err := d.RecentEvents("", 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if !events[0].Time.After(events[1].Time) || !events[1].Time.After(events[2].Time) {
		t.Errorf("events not sorted newest first: %v, %v, %v",
			events[0].Time, events[1].Time, events[2].Time)
	}
}

func TestRecentEventsFiltersByTask(t *testing.T) {
	d := openTestDB(t)

	now := time.Now()
	for _, taskID := range []string{"t1", "t2", "t1"} {
		if err := d.SaveEvent(&EventRow{Kind: "phase", TaskID: taskID, Time: now}); err != nil {
			t.Fatalf("SaveEvent: %v", err)
		}
	}

	events, err := d.RecentEvents("t1", 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for t1, got %d", len(events))
	}
	for _, e := range events {
		if e.TaskID != "t1" {
			t.Errorf("unexpected task id %q", e.TaskID)
		}
	}
}

func TestRecentEventsHonorsLimit(t *testing.T) {
	d := openTestDB(t)

	now := time.Now()
	for i := 0; i < 5; i++ {
		if err := d.SaveEvent(&EventRow{Kind: "tokens", Time: now.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatalf("SaveEvent: %v", err)
		}
	}

	events, err := d.RecentEvents("", 2)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}

func TestPruneOlderThan(t *testing.T) {
	d := openTestDB(t)

	now := time.Now()
	old := &EventRow{Kind: "complete", Time: now.Add(-48 * time.Hour), ReceivedAt: now.Add(-48 * time.Hour)}
	fresh := &EventRow{Kind: "complete", Time: now, ReceivedAt: now}
	for _, e := range []*EventRow{old, fresh} {
		if err := d.SaveEvent(e); err != nil {
			t.Fatalf("SaveEvent: %v", err)
		}
	}

	removed, err := d.PruneOlderThan(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 pruned, got %d", removed)
	}

	count, err := d.CountEvents()
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 remaining, got %d", count)
	}
}
