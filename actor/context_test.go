package actor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// tickActor schedules a self-interval on start and counts the ticks on an
// external counter, so the test can keep observing after the actor value is
// gone.
type tickActor struct {
	ticks *atomic.Int64
	every time.Duration
}

func (a *tickActor) Started(_ context.Context,
	acx *Context[*tickActor]) error {

	return Interval(acx, tick{}, a.every)
}

func (a *tickActor) Stopped(_ context.Context, _ *Context[*tickActor]) {}

type tick struct{}

func tickBuilder(a *tickActor) *Builder[*tickActor] {
	b := Build(a).Unbounded()
	Handle(b, func(a *tickActor, _ context.Context,
		_ *Context[*tickActor], _ tick) {

		a.ticks.Add(1)
	})

	return b
}

// TestIntervalFiresAndStops tests that an interval delivers ticks while the
// actor runs and never after Stopped returns.
func TestIntervalFiresAndStops(t *testing.T) {
	t.Parallel()

	ctx := testCtx(t)

	var ticks atomic.Int64
	addr, err := tickBuilder(&tickActor{
		ticks: &ticks,
		every: 10 * time.Millisecond,
	}).Spawn()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return ticks.Load() >= 3
	}, testTimeout, 5*time.Millisecond)

	require.NoError(t, addr.Stop())
	require.NoError(t, addr.Join(ctx))

	// No handler invocation may happen after termination.
	settled := ticks.Load()
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, settled, ticks.Load())
}

// delayActor fires a single delayed message to itself.
type delayActor struct {
	fired chan struct{}
	delay time.Duration
}

func (a *delayActor) Started(_ context.Context,
	acx *Context[*delayActor]) error {

	return DelayedSend(acx, func() tick { return tick{} }, a.delay)
}

func (a *delayActor) Stopped(_ context.Context, _ *Context[*delayActor]) {}

// TestDelayedSend tests that a delayed self-send arrives once.
func TestDelayedSend(t *testing.T) {
	t.Parallel()

	ctx := testCtx(t)

	a := &delayActor{
		fired: make(chan struct{}, 2),
		delay: 10 * time.Millisecond,
	}
	b := Build(a).Unbounded()
	Handle(b, func(a *delayActor, _ context.Context,
		_ *Context[*delayActor], _ tick) {

		a.fired <- struct{}{}
	})

	addr, err := b.Spawn()
	require.NoError(t, err)

	select {
	case <-a.fired:
	case <-ctx.Done():
		t.Fatal("delayed send never fired")
	}

	// Exactly once.
	select {
	case <-a.fired:
		t.Fatal("delayed send fired twice")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, addr.Stop())
	require.NoError(t, addr.Join(ctx))
}

// TestDelayedSendAbortedByStop tests that stopping the actor before the
// delay elapses cancels the side task.
func TestDelayedSendAbortedByStop(t *testing.T) {
	t.Parallel()

	ctx := testCtx(t)

	// A delay far longer than the test: the stop must win.
	a := &delayActor{
		fired: make(chan struct{}, 1),
		delay: 10 * time.Second,
	}
	b := Build(a).Unbounded()
	Handle(b, func(a *delayActor, _ context.Context,
		_ *Context[*delayActor], _ tick) {

		a.fired <- struct{}{}
	})

	addr, err := b.Spawn()
	require.NoError(t, err)

	require.NoError(t, addr.Stop())
	require.NoError(t, addr.Join(ctx))

	select {
	case <-a.fired:
		t.Fatal("delayed send fired after stop")
	case <-time.After(50 * time.Millisecond):
	}
}

// childActor signals its termination on a channel.
type childActor struct {
	BaseActor[*childActor]

	stopped chan struct{}
}

func (c *childActor) Stopped(_ context.Context, _ *Context[*childActor]) {
	close(c.stopped)
}

// parentActor creates one child during start.
type parentActor struct {
	BaseActor[*parentActor]

	childStopped chan struct{}
}

func (p *parentActor) Started(_ context.Context,
	acx *Context[*parentActor]) error {

	_, err := CreateChild(acx, func() *Builder[*childActor] {
		return Build(&childActor{
			stopped: p.childStopped,
		}).Unbounded()
	})

	return err
}

// TestChildStoppedWithParent tests parent-to-child stop propagation.
func TestChildStoppedWithParent(t *testing.T) {
	t.Parallel()

	ctx := testCtx(t)

	childStopped := make(chan struct{})
	addr, err := Build(&parentActor{
		childStopped: childStopped,
	}).Unbounded().Spawn()
	require.NoError(t, err)

	require.NoError(t, addr.Stop())
	require.NoError(t, addr.Join(ctx))

	select {
	case <-childStopped:
	case <-ctx.Done():
		t.Fatal("child was not stopped with its parent")
	}
}

// TestIntervalWithoutHandler tests that scheduling against an unregistered
// message type is rejected during Started, stopping the actor.
func TestIntervalWithoutHandler(t *testing.T) {
	t.Parallel()

	ctx := testCtx(t)

	var ticks atomic.Int64
	b := Build(&tickActor{
		ticks: &ticks,
		every: time.Millisecond,
	}).Unbounded()

	// No tick handler registered: Started must fail and the loop must
	// report a start failure.
	owning, err := b.SpawnOwning()
	require.NoError(t, err)

	_, joinErr := owning.Join(ctx)
	require.ErrorIs(t, joinErr, ErrStartFailed)
	require.ErrorIs(t, joinErr, ErrNoHandler)
}
