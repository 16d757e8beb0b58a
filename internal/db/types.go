package db

import "time"

// EventRow is one persisted event as received from the server stream.
type EventRow struct {
	ID         string
	Kind       string
	TaskID     string
	Data       string
	Time       time.Time
	ReceivedAt time.Time
}
