package voltcraft

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates no reply arrived before the session timeout or the caller's deadline.
	ErrTimeout = errors.New("timed out waiting for reply")

	// ErrSessionClosed indicates the session was closed; no further commands can be sent.
	ErrSessionClosed = errors.New("session closed")

	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
)

// TransportError wraps a failure reported by the underlying transport.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}
