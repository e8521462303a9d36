package locritchat

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	ErrClosed             = errors.New("locritchat: client closed")
	ErrNotConnected       = errors.New("locritchat: not connected")
	ErrReconnectExhausted = errors.New("locritchat: reconnect attempts exhausted")
	ErrUnexpectedEvent    = errors.New("locritchat: unexpected event")
)

// ConnectionError represents a failure to establish or re-establish the
// streaming transport. It is fatal only for sends already waiting on
// connectivity; later sends reattempt the connection.
type ConnectionError struct {
	Op  string
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("locritchat: %s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("locritchat: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// SessionJoinError represents a rejected or timed-out join handshake.
// It does not mark the target permanently unreachable.
type SessionJoinError struct {
	Target    string
	SessionID string
	Reason    string
	Err       error
}

func (e *SessionJoinError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("locritchat: join %s: %s", e.Target, e.Reason)
	}
	return fmt.Sprintf("locritchat: join %s: %v", e.Target, e.Err)
}

func (e *SessionJoinError) Unwrap() error {
	return e.Err
}

// SendError represents a transmission failure after a session was
// established, including a mid-stream drop.
type SendError struct {
	Op  string
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("locritchat: send %s: %v", e.Op, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// FallbackError represents a failure of the synchronous channel. It is the
// only error surfaced through OnError, since it means both paths are
// exhausted.
type FallbackError struct {
	Target string
	Err    error
}

func (e *FallbackError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("locritchat: fallback %s: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("locritchat: fallback: %v", e.Err)
}

func (e *FallbackError) Unwrap() error {
	return e.Err
}
