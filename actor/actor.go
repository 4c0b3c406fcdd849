package actor

import (
	"context"
)

// Actor is the lifecycle contract implemented by every actor type. The type
// parameter is the actor's own concrete type (typically a pointer), so the
// hooks receive a context record typed to the actor:
//
//	type Counter struct {
//		actor.BaseActor[*Counter]
//		n int
//	}
//
// An actor value is owned by exactly one event-loop task for its lifetime
// and is never shared: hooks and handlers observe exclusive access.
type Actor[A any] interface {
	// Started runs before any message is dispatched, once per run
	// (including after each restart). Returning an error stops the actor
	// without dispatching anything.
	Started(ctx context.Context, acx *Context[A]) error

	// Stopped runs exactly once per run on any terminal transition,
	// including a failed Started.
	Stopped(ctx context.Context, acx *Context[A])
}

// BaseActor provides no-op lifecycle hooks for embedding, for actor types
// that don't need Started/Stopped:
//
//	type Echo struct {
//		actor.BaseActor[*Echo]
//	}
type BaseActor[A any] struct{}

// Started implements Actor.
func (BaseActor[A]) Started(_ context.Context, _ *Context[A]) error {
	return nil
}

// Stopped implements Actor.
func (BaseActor[A]) Stopped(_ context.Context, _ *Context[A]) {}

// DefaultActor is the constraint for actors that expose a nullary
// constructor, required by the recreate-from-default restart strategy and by
// the service registry. Default must be callable on the zero value of A
// (for pointer actor types that means a nil receiver):
//
//	func (*Counter) Default() *Counter { return &Counter{} }
type DefaultActor[A any] interface {
	Actor[A]

	// Default returns a freshly constructed actor value.
	Default() A
}

// ServiceActor is the constraint for actors with a process-wide singleton
// address available via FromRegistry. Beyond the default constructor, a
// service wires its own dispatch table so that the registry can launch it
// without caller involvement. The type parameter carries the Actor bound so
// the Builder reference below is well-formed.
type ServiceActor[A Actor[A]] interface {
	DefaultActor[A]

	// RegisterHandlers installs the service's message handlers on the
	// builder used to launch it.
	RegisterHandlers(b *Builder[A])
}
