package actor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Addr is the external handle to a running actor. It holds one strong
// reference to the actor's mailbox: the actor keeps serving as long as at
// least one strong handle exists or until it is explicitly stopped. Clone is
// cheap; Release drops this handle's reference. Releasing the last strong
// handle closes the mailbox, which terminates the actor gracefully once the
// backlog drains.
type Addr[A any] struct {
	core     *actorCore[A]
	released atomic.Bool
}

// ID returns the actor's identifier.
func (a *Addr[A]) ID() string {
	return a.core.id
}

// Stop enqueues a stop request. Messages enqueued before it are handled
// first. Fails with ErrAlreadyStopped if the mailbox is closed, or
// ErrMailboxFull if a bounded mailbox is at capacity.
func (a *Addr[A]) Stop() error {
	err := a.core.chn.trySend(payload[A]{kind: payloadStop})
	switch {
	case errors.Is(err, ErrMailboxClosed):
		return ErrAlreadyStopped
	case err != nil:
		return err
	}

	return nil
}

// Restart enqueues a restart request. Only available on actors built with a
// restart strategy; others fail with ErrNotRestartable.
func (a *Addr[A]) Restart() error {
	if !a.core.restartable {
		return ErrNotRestartable
	}

	err := a.core.chn.trySend(payload[A]{kind: payloadRestart})
	switch {
	case errors.Is(err, ErrMailboxClosed):
		return ErrAlreadyStopped
	case err != nil:
		return err
	}

	return nil
}

// Join blocks until the actor's event loop exits, returning its terminal
// error, if any. Idempotent; any number of joiners is allowed.
func (a *Addr[A]) Join(ctx context.Context) error {
	return a.core.running.wait(ctx)
}

// Stopped reports whether the event loop has exited. Non-blocking.
func (a *Addr[A]) Stopped() bool {
	return a.core.running.stopped()
}

// Ping round-trips an empty task through the mailbox, resolving once every
// message enqueued before it has been handled. Useful to drain an actor in
// tests and coordination code.
func (a *Addr[A]) Ping(ctx context.Context) error {
	reply := NewPromise[any]()

	p := payload[A]{
		kind:    payloadTask,
		msgType: "ping",
		task: func(_ context.Context, _ A, _ *Context[A]) {
			reply.Complete(fn.Ok[any](nil))
		},
		drop: func() {
			reply.Complete(fn.Err[any](ErrResponseCanceled))
		},
	}
	if err := a.core.chn.send(ctx, p); err != nil {
		return err
	}

	_, err := reply.Future().Await(ctx).Unpack()

	return err
}

// Clone duplicates this strong handle. Constant time.
func (a *Addr[A]) Clone() *Addr[A] {
	clone := &Addr[A]{core: a.core}
	if !a.core.chn.retain() {
		// All strong references are already gone; the clone is inert.
		clone.released.Store(true)
	}

	return clone
}

// Release drops this handle's strong reference. Idempotent per handle.
// After the last strong reference is gone the actor terminates once its
// mailbox drains, with Stopped still running.
func (a *Addr[A]) Release() {
	if a.released.CompareAndSwap(false, true) {
		a.core.chn.release()
	}
}

// Downgrade returns a weak handle that does not prolong the actor.
func (a *Addr[A]) Downgrade() *WeakAddr[A] {
	return &WeakAddr[A]{core: a.core}
}

// WeakAddr is a weak handle to an actor: it can observe the actor and be
// upgraded to a strong Addr, but never keeps the actor alive by itself.
// Used for back-references that must not create lifetime cycles.
type WeakAddr[A any] struct {
	core *actorCore[A]
}

// ID returns the actor's identifier.
func (w *WeakAddr[A]) ID() string {
	return w.core.id
}

// Upgrade produces a strong address iff at least one strong handle still
// exists at this moment.
func (w *WeakAddr[A]) Upgrade() fn.Option[*Addr[A]] {
	if !w.core.chn.retain() {
		return fn.None[*Addr[A]]()
	}

	return fn.Some(&Addr[A]{core: w.core})
}

// Stopped reports whether the event loop has exited.
func (w *WeakAddr[A]) Stopped() bool {
	return w.core.running.stopped()
}

// OwningAddr couples a strong address with the event-loop task's join
// handle. It is the only handle that can await termination and recover the
// final actor value.
type OwningAddr[A any] struct {
	addr   *Addr[A]
	handle *JoinHandle[A]
}

// Addr returns the plain address for cloning and message passing.
func (o *OwningAddr[A]) Addr() *Addr[A] {
	return o.addr
}

// StopAndJoin stops the actor, waits for its loop to exit, and recovers the
// actor value. The value is fn.None if it was already consumed by an
// earlier join. A start failure surfaces as the returned error.
func (o *OwningAddr[A]) StopAndJoin(ctx context.Context) (fn.Option[A],
	error) {

	// The blocking send variant rides out a momentarily full bounded
	// mailbox; a closed mailbox means the loop is already on its way out.
	err := o.addr.core.chn.send(ctx, payload[A]{kind: payloadStop})
	if err != nil && !errors.Is(err, ErrMailboxClosed) {
		return fn.None[A](), err
	}

	return o.handle.Join(ctx)
}

// Join waits for the loop to exit without requesting a stop.
func (o *OwningAddr[A]) Join(ctx context.Context) (fn.Option[A], error) {
	return o.handle.Join(ctx)
}

// Send delivers a fire-and-forget message to the actor behind addr,
// blocking while a bounded mailbox is at capacity. The message is handled
// in enqueue order relative to this sender. Package-level generic function
// because methods cannot have their own type parameters.
func Send[A, M any](ctx context.Context, addr *Addr[A], msg M) error {
	p, err := taskPayload(addr.core, msg, nil)
	if err != nil {
		return err
	}

	return addr.core.chn.send(ctx, p)
}

// TrySend is Send without blocking: a bounded mailbox at capacity fails
// with ErrMailboxFull.
func TrySend[A, M any](addr *Addr[A], msg M) error {
	p, err := taskPayload(addr.core, msg, nil)
	if err != nil {
		return err
	}

	return addr.core.chn.trySend(p)
}

// Call delivers a request/response message and awaits the response. The
// response type parameter must match the handler registration; it is
// checked before the message is enqueued. Fails with ErrMailboxClosed if
// the actor is gone, ErrResponseCanceled if it stops before responding, and
// ErrCallTimeout if the actor was built with a call deadline that elapses
// first.
func Call[R, A, M any](ctx context.Context, addr *Addr[A], msg M) (R, error) {
	return callCore[R](ctx, addr.core, msg)
}

// taskPayload wraps msg and an optional reply promise into a dispatch
// closure using the registered handler for M.
func taskPayload[A, M any](core *actorCore[A], msg M,
	reply *Promise[any]) (payload[A], error) {

	key := msgType[M]()
	entry, ok := core.handlers.lookup(key)
	if !ok {
		return payload[A]{}, fmt.Errorf("%w: %v", ErrNoHandler, key)
	}

	p := payload[A]{
		kind:    payloadTask,
		msgType: key.String(),
		task: func(ctx context.Context, a A, acx *Context[A]) {
			entry.invoke(ctx, a, acx, msg, reply)
		},
	}
	if reply != nil {
		p.drop = func() {
			reply.Complete(fn.Err[any](ErrResponseCanceled))
		}
	}

	return p, nil
}

// callCore enqueues a call task and awaits its reply.
func callCore[R, A, M any](ctx context.Context, core *actorCore[A],
	msg M) (R, error) {

	var zero R

	key := msgType[M]()
	entry, ok := core.handlers.lookup(key)
	if !ok {
		return zero, fmt.Errorf("%w: %v", ErrNoHandler, key)
	}

	want := reflect.TypeOf((*R)(nil)).Elem()
	if entry.respType != want {
		return zero, fmt.Errorf("%w: handler for %v responds with "+
			"%v, caller wants %v", ErrResponseTypeMismatch, key,
			entry.respType, want)
	}

	reply := NewPromise[any]()
	p, err := taskPayload(core, msg, reply)
	if err != nil {
		return zero, err
	}

	if err := core.chn.send(ctx, p); err != nil {
		return zero, err
	}

	// Await the reply, racing the caller's context and the configured
	// call deadline, if any. A late reply completes against an already
	// resolved promise, which is a no-op.
	var timeoutCh <-chan time.Time
	if d := core.callTimeout; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	fut := reply.Future()
	select {
	case <-fut.doneChan():

	case <-ctx.Done():
		return zero, ctx.Err()

	case <-timeoutCh:
		return zero, ErrCallTimeout
	}

	resp, err := fut.Await(ctx).Unpack()
	if err != nil {
		return zero, err
	}

	return resp.(R), nil
}
