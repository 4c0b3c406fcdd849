package actor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Sender is a type-erased projection of an address that can deliver exactly
// one message type. It exists so that unrelated actor types handling the
// same message can be collected behind a single type. A Sender holds one
// strong reference to its actor's mailbox; Release drops it.
type Sender[M any] struct {
	id       string
	released atomic.Bool

	send    func(ctx context.Context, msg M) error
	trySend func(msg M) error
	release func()
	stopped func() bool
}

// ID returns the target actor's identifier.
func (s *Sender[M]) ID() string {
	return s.id
}

// Send delivers msg, blocking while a bounded mailbox is at capacity.
func (s *Sender[M]) Send(ctx context.Context, msg M) error {
	return s.send(ctx, msg)
}

// TrySend delivers msg without blocking.
func (s *Sender[M]) TrySend(msg M) error {
	return s.trySend(msg)
}

// Stopped reports whether the target's event loop has exited.
func (s *Sender[M]) Stopped() bool {
	return s.stopped()
}

// Release drops this projection's strong reference. Idempotent.
func (s *Sender[M]) Release() {
	if s.released.CompareAndSwap(false, true) {
		s.release()
	}
}

// SenderFor projects addr onto a single message type. It fails with
// ErrNoHandler if the actor has no handler for M, so an invalid projection
// is caught at construction rather than on first use. Package-level generic
// function because methods cannot have their own type parameters.
func SenderFor[M, A any](addr *Addr[A]) (*Sender[M], error) {
	core := addr.core

	key := msgType[M]()
	if _, ok := core.handlers.lookup(key); !ok {
		return nil, fmt.Errorf("%w: %v", ErrNoHandler, key)
	}

	s := newSenderFromCore[M](core)
	if !core.chn.retain() {
		s.released.Store(true)
	}

	return s, nil
}

// newSenderFromCore builds the Sender closures over an actor core. The
// caller is responsible for taking the strong reference.
func newSenderFromCore[M, A any](core *actorCore[A]) *Sender[M] {
	return &Sender[M]{
		id: core.id,
		send: func(ctx context.Context, msg M) error {
			p, err := taskPayload(core, msg, nil)
			if err != nil {
				return err
			}

			return core.chn.send(ctx, p)
		},
		trySend: func(msg M) error {
			p, err := taskPayload(core, msg, nil)
			if err != nil {
				return err
			}

			return core.chn.trySend(p)
		},
		release: core.chn.release,
		stopped: core.running.stopped,
	}
}

// Caller is a Sender for a request/response message type: it can also await
// the response. Like Sender it holds one strong mailbox reference.
type Caller[M, R any] struct {
	id       string
	released atomic.Bool

	call    func(ctx context.Context, msg M) (R, error)
	send    func(ctx context.Context, msg M) error
	release func()
	stopped func() bool
}

// ID returns the target actor's identifier.
func (c *Caller[M, R]) ID() string {
	return c.id
}

// Call delivers msg and awaits the response.
func (c *Caller[M, R]) Call(ctx context.Context, msg M) (R, error) {
	return c.call(ctx, msg)
}

// Send delivers msg without awaiting the response.
func (c *Caller[M, R]) Send(ctx context.Context, msg M) error {
	return c.send(ctx, msg)
}

// Stopped reports whether the target's event loop has exited.
func (c *Caller[M, R]) Stopped() bool {
	return c.stopped()
}

// Release drops this projection's strong reference. Idempotent.
func (c *Caller[M, R]) Release() {
	if c.released.CompareAndSwap(false, true) {
		c.release()
	}
}

// CallerFor projects addr onto a single request/response message type,
// validating both the handler registration and the response type up front.
func CallerFor[R, M, A any](addr *Addr[A]) (*Caller[M, R], error) {
	core := addr.core

	key := msgType[M]()
	entry, ok := core.handlers.lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNoHandler, key)
	}
	want := msgType[R]()
	if entry.respType != want {
		return nil, fmt.Errorf("%w: handler for %v responds with "+
			"%v, caller wants %v", ErrResponseTypeMismatch, key,
			entry.respType, want)
	}

	c := &Caller[M, R]{
		id: core.id,
		call: func(ctx context.Context, msg M) (R, error) {
			return callCore[R](ctx, core, msg)
		},
		send: func(ctx context.Context, msg M) error {
			p, err := taskPayload(core, msg, nil)
			if err != nil {
				return err
			}

			return core.chn.send(ctx, p)
		},
		release: core.chn.release,
		stopped: core.running.stopped,
	}
	if !core.chn.retain() {
		c.released.Store(true)
	}

	return c, nil
}

// WeakSender is the weak flavour of Sender: it holds no strong reference
// and therefore never prolongs the actor. Sends succeed only while the
// mailbox is still open.
type WeakSender[M any] struct {
	id      string
	trySend func(msg M) error
	upgrade func() fn.Option[*Sender[M]]
	stopped func() bool
}

// ID returns the target actor's identifier.
func (w *WeakSender[M]) ID() string {
	return w.id
}

// TrySend delivers msg if the actor is still reachable, failing with
// ErrAlreadyStopped otherwise.
func (w *WeakSender[M]) TrySend(msg M) error {
	err := w.trySend(msg)
	if errors.Is(err, ErrMailboxClosed) {
		return ErrAlreadyStopped
	}

	return err
}

// Upgrade produces a strong Sender iff a strong handle still exists.
func (w *WeakSender[M]) Upgrade() fn.Option[*Sender[M]] {
	return w.upgrade()
}

// Stopped reports whether the target's event loop has exited.
func (w *WeakSender[M]) Stopped() bool {
	return w.stopped()
}

// WeakSenderFor projects addr onto a single message type without taking a
// strong reference.
func WeakSenderFor[M, A any](addr *Addr[A]) (*WeakSender[M], error) {
	return weakSenderFor[M](addr.core)
}

// weakSenderFor builds a weak typed projection directly from an actor core.
// This is how a context self-addresses (intervals, delayed sends, broker
// subscriptions) without extending its own lifetime.
func weakSenderFor[M, A any](core *actorCore[A]) (*WeakSender[M], error) {
	key := msgType[M]()
	if _, ok := core.handlers.lookup(key); !ok {
		return nil, fmt.Errorf("%w: %v", ErrNoHandler, key)
	}

	return &WeakSender[M]{
		id: core.id,
		trySend: func(msg M) error {
			p, err := taskPayload(core, msg, nil)
			if err != nil {
				return err
			}

			return core.chn.trySend(p)
		},
		upgrade: func() fn.Option[*Sender[M]] {
			if !core.chn.retain() {
				return fn.None[*Sender[M]]()
			}

			return fn.Some(newSenderFromCore[M](core))
		},
		stopped: core.running.stopped,
	}, nil
}
