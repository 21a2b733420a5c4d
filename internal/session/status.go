package session

// Status is the connection lifecycle state. Exactly one value is active at a
// time: disconnected, then connecting, then connected, settling back to
// disconnected or error. An unsolicited close with reconnect budget left goes
// from connected back to connecting.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}
