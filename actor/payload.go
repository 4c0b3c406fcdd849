package actor

import (
	"context"
)

// payloadKind tags the three envelope variants that travel through a
// mailbox.
type payloadKind uint8

const (
	// payloadTask carries an opaque unit of work that borrows the actor
	// and invokes the handler for its embedded message.
	payloadTask payloadKind = iota

	// payloadStop asks the event loop to terminate.
	payloadStop

	// payloadRestart asks the event loop to re-initialise the actor via
	// its restart strategy. Only meaningful for restartable actors.
	payloadRestart
)

// payload is the envelope delivered through a mailbox. For task payloads,
// the closure captures the concrete message and, for calls, the typed reply
// promise. The closure performs the typed handler invocation internally, so
// the receive site never inspects message types.
type payload[A any] struct {
	kind payloadKind

	// task is the dispatch closure for payloadTask envelopes.
	task func(ctx context.Context, a A, acx *Context[A])

	// drop is invoked when the envelope is discarded without dispatch
	// (mailbox teardown). For calls this completes the embedded reply
	// promise with ErrResponseCanceled.
	drop func()

	// msgType is the message type name, kept for log output only.
	msgType string
}
