package actor

import (
	"context"
	"errors"
	"time"
)

// StopRef is the capability a parent keeps for each of its children: enough
// to identify and stop an actor, nothing more. Every *Addr satisfies it.
type StopRef interface {
	// ID returns the child's identifier.
	ID() string

	// Stop enqueues a stop request on the child's mailbox.
	Stop() error
}

// Context is the per-actor record visible to lifecycle hooks and handlers.
// It self-addresses through a weak reference, so holding a Context never
// prolongs the actor's own mailbox. A Context is only ever touched from the
// actor's event-loop task; none of its methods are safe for use elsewhere.
type Context[A any] struct {
	core    *actorCore[A]
	spawner Spawner

	// runCtx is the context of the current run. It is cancelled on
	// restart and on termination, which aborts every side task
	// (intervals, delayed sends) scheduled during the run.
	runCtx    context.Context
	cancelRun context.CancelFunc

	// children holds the stop capabilities registered during the actor's
	// lifetime. On termination each one receives a stop request, in
	// registration order.
	children []StopRef
}

func newContext[A any](core *actorCore[A], spawner Spawner) *Context[A] {
	return &Context[A]{
		core:    core,
		spawner: spawner,
	}
}

// beginRun opens a fresh run scope for side tasks.
func (c *Context[A]) beginRun() {
	c.runCtx, c.cancelRun = context.WithCancel(context.Background())
}

// endRun aborts every side task of the current run.
func (c *Context[A]) endRun() {
	if c.cancelRun != nil {
		c.cancelRun()
	}
}

// ID returns the actor's identifier.
func (c *Context[A]) ID() string {
	return c.core.id
}

// Stop enqueues a stop request on the actor's own mailbox. Messages already
// queued are handled first. Fails with ErrAlreadyStopped once the mailbox is
// closed.
func (c *Context[A]) Stop() error {
	err := c.core.chn.trySend(payload[A]{kind: payloadStop})
	switch {
	case errors.Is(err, ErrMailboxClosed):
		return ErrAlreadyStopped
	case err != nil:
		return err
	}

	return nil
}

// Restart enqueues a restart request on the actor's own mailbox. Only
// available on actors built with a restart strategy.
func (c *Context[A]) Restart() error {
	if !c.core.restartable {
		return ErrNotRestartable
	}

	err := c.core.chn.trySend(payload[A]{kind: payloadRestart})
	switch {
	case errors.Is(err, ErrMailboxClosed):
		return ErrAlreadyStopped
	case err != nil:
		return err
	}

	return nil
}

// AddChild registers a child to be stopped when this actor terminates.
// Stops are delivered in registration order, best effort.
func (c *Context[A]) AddChild(child StopRef) {
	c.children = append(c.children, child)
}

// CreateChild spawns an actor from the given builder and registers it as a
// child of acx's actor. Package-level generic function because methods
// cannot have their own type parameters.
func CreateChild[A any, C Actor[C]](acx *Context[A],
	create func() *Builder[C]) (*Addr[C], error) {

	child, err := create().Spawn()
	if err != nil {
		return nil, err
	}

	acx.AddChild(child)

	return child, nil
}

// Interval schedules msg to be sent to the actor itself every d, starting
// after the first full interval. The task stops when the run ends (actor
// stop or restart) or once the mailbox is gone.
func Interval[A, M any](acx *Context[A], msg M, d time.Duration) error {
	return IntervalWith(acx, func() M { return msg }, d)
}

// IntervalWith is Interval with a freshly produced message per tick.
func IntervalWith[A, M any](acx *Context[A], msgFn func() M,
	d time.Duration) error {

	self, err := weakSenderFor[M](acx.core)
	if err != nil {
		return err
	}

	runCtx := acx.runCtx
	acx.spawner.Spawn(func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				// A full bounded mailbox only skips this tick.
				err := self.TrySend(msgFn())
				if errors.Is(err, ErrAlreadyStopped) {
					return
				}

			case <-runCtx.Done():
				return
			}
		}
	})

	return nil
}

// DelayedSend schedules a single message to the actor itself after d. The
// task is aborted if the run ends first.
func DelayedSend[A, M any](acx *Context[A], msgFn func() M,
	d time.Duration) error {

	self, err := weakSenderFor[M](acx.core)
	if err != nil {
		return err
	}

	runCtx := acx.runCtx
	acx.spawner.Spawn(func() {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
			if err := self.TrySend(msgFn()); err != nil {
				log.Tracef("Delayed send dropped, "+
					"actor_id=%s", self.ID())
			}

		case <-runCtx.Done():
		}
	})

	return nil
}
