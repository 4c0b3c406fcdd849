package actor

import (
	"errors"
	"fmt"
)

// ErrMailboxClosed indicates that a send failed because the destination
// mailbox no longer has a receiver: the actor terminated, or every strong
// address was released.
var ErrMailboxClosed = errors.New("actor mailbox closed")

// ErrMailboxFull indicates that a non-blocking send to a bounded mailbox
// found it at capacity. Only the non-blocking paths (TrySend, stop and
// restart requests, weak sends) report this; the blocking variants suspend
// until capacity frees up instead.
var ErrMailboxFull = errors.New("actor mailbox full")

// ErrAlreadyStopped indicates that a stop or restart request targeted an
// actor whose mailbox is already closed.
var ErrAlreadyStopped = errors.New("actor already stopped")

// ErrResponseCanceled indicates that the actor terminated before responding
// to a call. The message may or may not have been handled.
var ErrResponseCanceled = errors.New("actor response canceled")

// ErrCallTimeout indicates that a call deadline configured on the builder
// elapsed before the response arrived. The handler still runs to completion
// on the actor side; its eventual response is discarded.
var ErrCallTimeout = errors.New("actor call timed out")

// ErrNotRestartable indicates a restart request against an actor that was
// not built with a restart strategy.
var ErrNotRestartable = errors.New("actor is not restartable")

// ErrNoHandler indicates that the target actor has no handler registered
// for the message type being sent. This is a delivery error: it is reported
// to the sender and never affects the running actor.
var ErrNoHandler = errors.New("no handler registered for message type")

// ErrResponseTypeMismatch indicates that the response type requested by a
// caller does not match the response type the handler was registered with.
var ErrResponseTypeMismatch = errors.New("call response type mismatch")

// ErrServiceNotFound indicates that a registry lookup without
// auto-construction found no registered address for the actor type.
var ErrServiceNotFound = errors.New("service not found in registry")

// ErrStartFailed is the terminal error of an actor whose Started hook
// returned an error. The hook's error is wrapped and visible on join of an
// owning address.
var ErrStartFailed = errors.New("actor start failed")

// startFailed wraps a Started hook error so callers can match it with
// errors.Is(err, ErrStartFailed) while still unwrapping the cause.
func startFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrStartFailed, err)
}
