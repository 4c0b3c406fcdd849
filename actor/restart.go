package actor

import (
	"context"
)

// RestartStrategy decides how the event loop transforms an actor between
// runs when a restart request is handled. Refresh receives the outgoing
// actor value and must return the value for the next run; a returned error
// terminates the actor instead.
type RestartStrategy[A Actor[A]] interface {
	Refresh(ctx context.Context, a A, acx *Context[A]) (A, error)
}

// restartInPlace re-initialises the same value: Stopped, then Started
// again.
type restartInPlace[A Actor[A]] struct{}

// RestartInPlace returns the strategy that keeps the actor value across
// restarts.
func RestartInPlace[A Actor[A]]() RestartStrategy[A] {
	return restartInPlace[A]{}
}

// Refresh implements RestartStrategy.
func (restartInPlace[A]) Refresh(ctx context.Context, a A,
	acx *Context[A]) (A, error) {

	a.Stopped(ctx, acx)

	if err := a.Started(ctx, acx); err != nil {
		return a, err
	}

	return a, nil
}

// recreateFromDefault replaces the value with the actor type's default
// before starting the next run.
type recreateFromDefault[A DefaultActor[A]] struct{}

// RecreateFromDefaultStrategy returns the strategy that discards the actor
// value on restart and starts the next run from the type's default.
func RecreateFromDefaultStrategy[A DefaultActor[A]]() RestartStrategy[A] {
	return recreateFromDefault[A]{}
}

// Refresh implements RestartStrategy.
func (recreateFromDefault[A]) Refresh(ctx context.Context, a A,
	acx *Context[A]) (A, error) {

	a.Stopped(ctx, acx)

	a = a.Default()

	if err := a.Started(ctx, acx); err != nil {
		return a, err
	}

	return a, nil
}
