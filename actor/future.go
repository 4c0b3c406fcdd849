package actor

import (
	"context"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Promise is the producer side of an asynchronous result. The consumer side
// is obtained via Future. A promise may be completed at most once; later
// completions are no-ops. This makes delivery of a response to a caller that
// already gave up (timeout, cancellation) safe and non-blocking.
type Promise[T any] struct {
	done chan struct{}
	once sync.Once

	// result is only written inside once.Do, before done is closed, so
	// readers that observed the closed channel see a consistent value.
	result fn.Result[T]
}

// NewPromise creates a new unresolved promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{
		done: make(chan struct{}),
	}
}

// Complete attempts to set the result of the associated future. It returns
// true if this call was the one that completed the promise, and false if the
// promise had already been completed.
func (p *Promise[T]) Complete(result fn.Result[T]) bool {
	completed := false
	p.once.Do(func() {
		p.result = result
		close(p.done)
		completed = true
	})

	return completed
}

// Future returns the consumer side of this promise.
func (p *Promise[T]) Future() *Future[T] {
	return &Future[T]{p: p}
}

// Future represents the result of an asynchronous computation. Any number of
// consumers may await it; all observe the same result.
type Future[T any] struct {
	p *Promise[T]
}

// Await blocks until the result is available or the context is cancelled,
// then returns it. Cancellation surfaces as an error result; the underlying
// promise may still complete later.
func (f *Future[T]) Await(ctx context.Context) fn.Result[T] {
	select {
	case <-f.p.done:
		return f.p.result

	case <-ctx.Done():
		return fn.Err[T](ctx.Err())
	}
}

// OnComplete registers a function to be called once the result is ready. If
// the passed context is cancelled before completion, the callback is invoked
// with the context's error instead.
func (f *Future[T]) OnComplete(ctx context.Context, cb func(fn.Result[T])) {
	go func() {
		cb(f.Await(ctx))
	}()
}

// doneChan exposes the completion channel for in-package select loops such
// as the call timeout arm.
func (f *Future[T]) doneChan() <-chan struct{} {
	return f.p.done
}
