package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DB is the local event history store. The dashboard appends every inbound
// event so a restart can show recent activity; there is no replay back to
// the server, this is a display cache only.
type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, err
	}
	return &DB{sql: conn}, nil
}

func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) Migrate() error {
	_, err := d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id          TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			task_id     TEXT NOT NULL DEFAULT '',
			data        TEXT NOT NULL DEFAULT '',
			event_time  INTEGER NOT NULL,
			received_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create events: %w", err)
	}

	_, err = d.sql.Exec(`
		CREATE INDEX IF NOT EXISTS idx_events_task_time
		ON events (task_id, event_time)
	`)
	if err != nil {
		return fmt.Errorf("create events index: %w", err)
	}
	return nil
}

// SaveEvent appends one event. The row id is generated when empty.
func (d *DB) SaveEvent(e *EventRow) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now()
	}
	_, err := d.sql.Exec(`
		INSERT INTO events (id, kind, task_id, data, event_time, received_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.TaskID, e.Data,
		e.Time.UnixMilli(), e.ReceivedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first. An empty taskID
// returns events for every task.
func (d *DB) RecentEvents(taskID string, limit int) ([]*EventRow, error) {
	query := `
		SELECT id, kind, task_id, data, event_time, received_at
		FROM events`
	args := []any{}
	if taskID != "" {
		query += " WHERE task_id = ?"
		args = append(args, taskID)
	}
	query += " ORDER BY event_time DESC LIMIT ?"
	args = append(args, limit)

	rows, err := d.sql.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*EventRow
	for rows.Next() {
		e := &EventRow{}
		var eventMs, receivedMs int64
		if err := rows.Scan(&e.ID, &e.Kind, &e.TaskID, &e.Data, &eventMs, &receivedMs); err != nil {
			return nil, err
		}
		e.Time = time.UnixMilli(eventMs)
		e.ReceivedAt = time.UnixMilli(receivedMs)
		events = append(events, e)
	}
	return events, rows.Err()
}

// PruneOlderThan deletes events received before cutoff and returns the
// number removed.
func (d *DB) PruneOlderThan(cutoff time.Time) (int64, error) {
	res, err := d.sql.Exec("DELETE FROM events WHERE received_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}

// CountEvents returns the total number of stored events.
func (d *DB) CountEvents() (int, error) {
	var n int
	err := d.sql.QueryRow("SELECT COUNT(*) FROM events").Scan(&n)
	return n, err
}
