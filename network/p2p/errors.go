package p2p

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRecipients reports a publish into a topic whose partial view
	// is empty. The message is dropped; callers may retry once peers
	// have been discovered.
	ErrNoRecipients = errors.New("no recipients in topic partial view")

	// ErrBusy reports a full command queue. Callers fail fast instead
	// of blocking the event loop.
	ErrBusy = errors.New("network command queue is full")

	// ErrAlreadyListening reports a second Start on a running manager.
	ErrAlreadyListening = errors.New("transport is already listening")

	// ErrNotRunning reports an operation on a stopped manager.
	ErrNotRunning = errors.New("p2p manager is not running")
)

// BindError wraps a failure to bind the listen address. Recoverable:
// the caller may retry with a different address or after backoff.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// DialError wraps a failed outbound connection attempt.
type DialError struct {
	Addr string
	Err  error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("failed to dial %s: %v", e.Addr, e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

// PublishError wraps a failed publish. errors.Is(err, ErrNoRecipients)
// distinguishes the empty-view case from serialization failures.
type PublishError struct {
	Topic string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish to topic %s: %v", e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
