package arenafast

import "fmt"

type WebSocketState int

const (
	WSStateDisconnected WebSocketState = iota
	WSStateConnecting
	WSStateConnected
	WSStateReconnecting
	// WSStateFailed is terminal: reconnect gave up or is disabled.
	WSStateFailed
)

func (s WebSocketState) String() string {
	switch s {
	case WSStateDisconnected:
		return "disconnected"
	case WSStateConnecting:
		return "connecting"
	case WSStateConnected:
		return "connected"
	case WSStateReconnecting:
		return "reconnecting"
	case WSStateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TransportError is a failure talking to the orchestrator, over HTTP or the event stream.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("arena %s: status=%d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("arena %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
