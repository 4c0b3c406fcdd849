package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// StreamHandler links an actor type A to items of an attached external
// stream. Stream items carry no response.
type StreamHandler[A, T any] func(a A, ctx context.Context, acx *Context[A],
	item T)

// Builder assembles an actor launch: mailbox mode, restart policy, message
// handlers, an optional stream, and spawn options. Configuration errors are
// collected and reported by Spawn, so the fluent chain never needs
// intermediate error checks.
type Builder[A Actor[A]] struct {
	actor A
	id    string

	// capacity is fn.None until a mailbox mode is chosen; fn.Some(0)
	// selects unbounded.
	capacity fn.Option[int]

	strategy    RestartStrategy[A]
	handlers    *handlerTable[A]
	bindStream  func(ctx context.Context) <-chan streamTask[A]
	callTimeout time.Duration
	spawner     Spawner

	err error
}

// Build starts a builder for the given actor value.
func Build[A Actor[A]](a A) *Builder[A] {
	return &Builder[A]{
		actor:    a,
		id:       fmt.Sprintf("actor.%s", uuid.New().String()),
		handlers: newHandlerTable[A](),
	}
}

// Bounded selects a bounded mailbox of the given capacity. Choosing a
// mailbox mode is mandatory before Spawn.
func (b *Builder[A]) Bounded(capacity int) *Builder[A] {
	if capacity <= 0 {
		b.fail(fmt.Errorf("bounded mailbox capacity must be "+
			"positive, got %d", capacity))
		return b
	}
	b.capacity = fn.Some(capacity)

	return b
}

// Unbounded selects an unbounded mailbox.
func (b *Builder[A]) Unbounded() *Builder[A] {
	b.capacity = fn.Some(0)

	return b
}

// NonRestartable clears any restart strategy. This is the default; the
// method exists so a chain can state it explicitly.
func (b *Builder[A]) NonRestartable() *Builder[A] {
	b.strategy = nil

	return b
}

// RestartInPlaceStrategy marks the actor restartable, re-initialising the
// same value on each restart.
func (b *Builder[A]) RestartInPlaceStrategy() *Builder[A] {
	b.strategy = RestartInPlace[A]()

	return b
}

// WithRestartStrategy marks the actor restartable with a custom strategy.
func (b *Builder[A]) WithRestartStrategy(s RestartStrategy[A]) *Builder[A] {
	b.strategy = s

	return b
}

// RecreateFromDefault marks the actor restartable, replacing the value with
// the type's default on each restart. Package-level generic function
// because methods cannot introduce the DefaultActor constraint.
func RecreateFromDefault[A DefaultActor[A]](b *Builder[A]) *Builder[A] {
	b.strategy = RecreateFromDefaultStrategy[A]()

	return b
}

// WithID overrides the generated actor identifier.
func (b *Builder[A]) WithID(id string) *Builder[A] {
	b.id = id

	return b
}

// WithCallTimeout bounds every call against this actor. A timed-out caller
// observes ErrCallTimeout while the handler still runs to completion.
func (b *Builder[A]) WithCallTimeout(d time.Duration) *Builder[A] {
	b.callTimeout = d

	return b
}

// WithSpawner overrides the process-wide spawner for this actor's event
// loop, stream pump and side tasks.
func (b *Builder[A]) WithSpawner(s Spawner) *Builder[A] {
	b.spawner = s

	return b
}

// fail records the first configuration error for Spawn to report.
func (b *Builder[A]) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Handle registers a fire-and-forget handler for message type M. Each
// (actor, message) pair has at most one handler; registering again
// replaces. Handlers must not panic: a panicking handler poisons the event
// loop, the Stopped hook is not guaranteed to run and the mailbox closes.
func Handle[A Actor[A], M any](b *Builder[A], h TellHandler[A, M]) *Builder[A] {
	registerTell(b.handlers, h)

	return b
}

// HandleCall registers a request/response handler for message type M with
// response type R. The same panic contract as Handle applies.
func HandleCall[A Actor[A], M, R any](b *Builder[A],
	h CallHandler[A, M, R]) *Builder[A] {

	registerCall(b.handlers, h)

	return b
}

// WithStream attaches an external stream to the actor: the event loop
// serves both the mailbox and the stream, invoking h for each item. The
// stream ending does not stop the actor. Stream-attached actors cannot be
// restartable.
func WithStream[A Actor[A], T any](b *Builder[A], stream <-chan T,
	h StreamHandler[A, T]) *Builder[A] {

	b.bindStream = func(ctx context.Context) <-chan streamTask[A] {
		out := make(chan streamTask[A])

		spawner := b.spawner
		if spawner == nil {
			spawner = DefaultSpawner()
		}
		spawner.Spawn(func() {
			defer close(out)

			for {
				select {
				case item, ok := <-stream:
					if !ok {
						return
					}

					task := func(ctx context.Context,
						a A, acx *Context[A]) {

						h(a, ctx, acx, item)
					}

					select {
					case out <- task:
					case <-ctx.Done():
						return
					}

				case <-ctx.Done():
					return
				}
			}
		})

		return out
	}

	return b
}

// OnStream is the stream shorthand: an unbounded, non-restartable actor
// attached to the given stream.
func OnStream[A Actor[A], T any](a A, stream <-chan T,
	h StreamHandler[A, T]) *Builder[A] {

	return WithStream(Build(a).Unbounded().NonRestartable(), stream, h)
}

// BoundedOnStream is OnStream with a bounded mailbox of the given capacity.
func BoundedOnStream[A Actor[A], T any](a A, capacity int, stream <-chan T,
	h StreamHandler[A, T]) *Builder[A] {

	return WithStream(Build(a).Bounded(capacity).NonRestartable(), stream,
		h)
}

// validate checks the assembled configuration.
func (b *Builder[A]) validate() error {
	if b.err != nil {
		return b.err
	}
	if b.capacity.IsNone() {
		return errors.New("mailbox mode not configured: call " +
			"Bounded or Unbounded before Spawn")
	}
	if b.bindStream != nil && b.strategy != nil {
		return errors.New("stream-attached actors cannot be " +
			"restartable")
	}

	return nil
}

// build assembles the environment without launching it.
func (b *Builder[A]) build() (*environment[A], error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	spawner := b.spawner
	if spawner == nil {
		spawner = DefaultSpawner()
	}

	core := &actorCore[A]{
		id:          b.id,
		chn:         newChannel[A](b.capacity.UnwrapOr(0)),
		handlers:    b.handlers,
		running:     newRunningSignal(),
		restartable: b.strategy != nil,
		callTimeout: b.callTimeout,
	}

	return &environment[A]{
		core:       core,
		spawner:    spawner,
		strategy:   b.strategy,
		bindStream: b.bindStream,
	}, nil
}

// Spawn launches the actor and returns its first strong address.
func (b *Builder[A]) Spawn() (*Addr[A], error) {
	env, err := b.build()
	if err != nil {
		return nil, err
	}

	addr, _ := env.launch(b.actor)

	return addr, nil
}

// SpawnOwning launches the actor and returns an owning address, the only
// handle that can await termination and recover the final actor value.
func (b *Builder[A]) SpawnOwning() (*OwningAddr[A], error) {
	env, err := b.build()
	if err != nil {
		return nil, err
	}

	addr, handle := env.launch(b.actor)

	return &OwningAddr[A]{addr: addr, handle: handle}, nil
}
