package actor

import (
	"context"
	"errors"
	"testing"
	"time"
)

// testTimeout bounds every blocking operation in tests.
const testTimeout = 5 * time.Second

func testCtx(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)

	return ctx
}

// recorder accumulates everything it handled plus lifecycle markers, so
// tests can recover it through an owning address and assert exact order.
type recorder struct {
	events []string
}

func (r *recorder) Started(_ context.Context, _ *Context[*recorder]) error {
	r.events = append(r.events, "started")
	return nil
}

func (r *recorder) Stopped(_ context.Context, _ *Context[*recorder]) {
	r.events = append(r.events, "stopped")
}

func (r *recorder) handleWord(_ context.Context, _ *Context[*recorder],
	word string) {

	r.events = append(r.events, word)
}

func recorderBuilder() *Builder[*recorder] {
	b := Build(&recorder{}).Unbounded()
	Handle(b, (*recorder).handleWord)

	return b
}

// accumulator collects integers, the fire-and-forget ordering actor from
// the walkthroughs.
type accumulator struct {
	BaseActor[*accumulator]

	values []uint32
}

func accumulatorBuilder() *Builder[*accumulator] {
	b := Build(&accumulator{}).Unbounded()
	Handle(b, func(a *accumulator, _ context.Context,
		_ *Context[*accumulator], v uint32) {

		a.values = append(a.values, v)
	})

	return b
}

// adder answers addition calls.
type adder struct {
	BaseActor[*adder]
}

type addMsg struct {
	a, b int
}

func adderBuilder() *Builder[*adder] {
	b := Build(&adder{}).Unbounded()
	HandleCall(b, func(_ *adder, _ context.Context, _ *Context[*adder],
		m addMsg) int {

		return m.a + m.b
	})

	return b
}

// failingActor fails its Started hook.
type failingActor struct {
	BaseActor[*failingActor]
}

var errBoom = errors.New("boom")

func (*failingActor) Started(_ context.Context,
	_ *Context[*failingActor]) error {

	return errBoom
}
