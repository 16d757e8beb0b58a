package realtime

import (
	"encoding/json"
	"time"
)

// AllTasks is the reserved task identifier that subscribes a connection to
// every task's events instead of a single task's.
const AllTasks = "*"

// Kind identifies an inbound event's category.
type Kind string

const (
	KindTaskCreated   Kind = "task_created"
	KindTaskUpdated   Kind = "task_updated"
	KindTaskDeleted   Kind = "task_deleted"
	KindState         Kind = "state"
	KindPhase         Kind = "phase"
	KindTranscript    Kind = "transcript"
	KindTokens        Kind = "tokens"
	KindComplete      Kind = "complete"
	KindError         Kind = "error"
	KindWarning       Kind = "warning"
	KindSessionUpdate Kind = "session_update"
	KindHeartbeat     Kind = "heartbeat"

	// KindAll is the wildcard listener key. Listeners registered under it
	// receive every event regardless of kind. It never appears on the wire.
	KindAll Kind = "all"
)

// Action is a task control command.
type Action string

const (
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionCancel Action = "cancel"
)

// Event is an inbound server event. Data is opaque to the client; consumers
// decode it into whatever shape the kind implies.
type Event struct {
	Kind   Kind            `json:"event"`
	TaskID string          `json:"task_id"`
	Data   json.RawMessage `json:"data"`
	Time   time.Time       `json:"time"`
}

// outboundFrame is the single outbound message shape. Type is one of
// subscribe, unsubscribe, command, ping.
type outboundFrame struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id,omitempty"`
	Action string `json:"action,omitempty"`
}

// inboundFrame is the superset of all server frame shapes; Type selects
// which fields are meaningful.
type inboundFrame struct {
	Type   string          `json:"type"`
	Event  Kind            `json:"event,omitempty"`
	TaskID string          `json:"task_id,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Time   time.Time       `json:"time,omitempty"`
	Error  string          `json:"error,omitempty"`
}
