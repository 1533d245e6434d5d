package peer

import (
	"errors"
	"fmt"
)

// ErrProtocolViolation is wrapped by every error caused by the remote peer
// breaking the wire protocol.
var ErrProtocolViolation = errors.New("protocol violation")

func violation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrProtocolViolation, fmt.Sprintf(format, args...))
}

// ConnectionError is a failure to connect to, read from or write to a peer.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("peer %s: %s", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// AbortError is the reason an engine stopped before completing. State is the
// state the engine was in when it failed.
type AbortError struct {
	State State
	Err   error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("aborted while %s: %s", e.State, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}
