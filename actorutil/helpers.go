// Package actorutil provides convenience helpers for working with the actor
// core: parallel calls across groups of actors, broadcast sends, result
// aggregation, and a round-robin pool.
package actorutil

import (
	"context"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/roasbeef/minibal/actor"
)

// TellAll sends a message to every sender in the slice using fire-and-forget
// semantics. This is useful for broadcasting to actors of unrelated types
// collected behind a single message type.
func TellAll[M any](ctx context.Context, senders []*actor.Sender[M], msg M) {
	for _, s := range senders {
		// Fire and forget: a closed mailbox is the recipient's
		// problem, not the broadcaster's.
		_ = s.Send(ctx, msg)
	}
}

// ParallelCall calls multiple actors concurrently and collects all results.
// The callers and msgs slices must have the same length. Results are
// returned in the same order as the input callers.
func ParallelCall[M, R any](ctx context.Context,
	callers []*actor.Caller[M, R], msgs []M) []fn.Result[R] {

	if len(callers) != len(msgs) {
		panic("callers and msgs must have same length")
	}

	results := make([]fn.Result[R], len(callers))
	done := make(chan struct{})

	for i, c := range callers {
		go func(idx int, c *actor.Caller[M, R]) {
			resp, err := c.Call(ctx, msgs[idx])
			if err != nil {
				results[idx] = fn.Err[R](err)
			} else {
				results[idx] = fn.Ok(resp)
			}

			done <- struct{}{}
		}(i, c)
	}

	for range callers {
		<-done
	}

	return results
}

// ParallelCallSame calls multiple actors concurrently with the same message
// and collects all results, in caller order.
func ParallelCallSame[M, R any](ctx context.Context,
	callers []*actor.Caller[M, R], msg M) []fn.Result[R] {

	msgs := make([]M, len(callers))
	for i := range msgs {
		msgs[i] = msg
	}

	return ParallelCall(ctx, callers, msgs)
}

// FirstSuccess calls multiple actors concurrently with the same message and
// returns the first successful response, cancelling the rest. If every
// actor returns an error, the last error is returned.
func FirstSuccess[M, R any](ctx context.Context,
	callers []*actor.Caller[M, R], msg M) (R, error) {

	var zero R
	if len(callers) == 0 {
		return zero, fmt.Errorf("no callers provided")
	}

	type indexedResult struct {
		resp R
		err  error
	}
	resultCh := make(chan indexedResult, len(callers))

	// Cancellable context for early termination of the losers.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, c := range callers {
		go func(c *actor.Caller[M, R]) {
			resp, err := c.Call(ctx, msg)
			select {
			case resultCh <- indexedResult{resp: resp, err: err}:
			case <-ctx.Done():
			}
		}(c)
	}

	var lastErr error
	for received := 0; received < len(callers); received++ {
		select {
		case res := <-resultCh:
			if res.err == nil {
				cancel()
				return res.resp, nil
			}
			lastErr = res.err

		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}

// MapResponses transforms a slice of results using the provided function.
// Error results pass through unchanged.
func MapResponses[R, T any](results []fn.Result[R],
	mapFn func(R) T) []fn.Result[T] {

	mapped := make([]fn.Result[T], len(results))
	for i, r := range results {
		val, err := r.Unpack()
		if err != nil {
			mapped[i] = fn.Err[T](err)
		} else {
			mapped[i] = fn.Ok(mapFn(val))
		}
	}

	return mapped
}

// CollectSuccesses filters a slice of results and returns only the
// successful values, discarding any errors.
func CollectSuccesses[R any](results []fn.Result[R]) []R {
	var successes []R
	for _, r := range results {
		val, err := r.Unpack()
		if err == nil {
			successes = append(successes, val)
		}
	}

	return successes
}

// AllSucceeded returns true if all results in the slice are successful.
func AllSucceeded[R any](results []fn.Result[R]) bool {
	for _, r := range results {
		if _, err := r.Unpack(); err != nil {
			return false
		}
	}

	return true
}

// FirstError returns the first error from a slice of results, or nil if
// all succeeded.
func FirstError[R any](results []fn.Result[R]) error {
	for _, r := range results {
		if _, err := r.Unpack(); err != nil {
			return err
		}
	}

	return nil
}
