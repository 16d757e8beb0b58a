package realtime

// State is the connection lifecycle state. Exactly one value is active at a
// time and transitions happen only inside the client.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// validTransitions is the explicit transition table. A close always passes
// through disconnected before the reconnect wait begins, so reconnecting is
// only entered from disconnected.
var validTransitions = map[State][]State{
	StateDisconnected: {StateConnecting, StateReconnecting},
	StateConnecting:   {StateConnected, StateDisconnected},
	StateConnected:    {StateDisconnected},
	StateReconnecting: {StateConnecting, StateDisconnected},
}

// CanTransition reports whether moving from one state to next is allowed by
// the transition table. Self-transitions are treated as no-ops by the client
// and are not listed.
func CanTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
