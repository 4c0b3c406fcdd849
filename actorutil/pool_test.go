package actorutil

import (
	"context"
	"testing"
	"time"

	"github.com/roasbeef/minibal/actor"
	"github.com/stretchr/testify/require"
)

func poolCtx(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(
		context.Background(), 5*time.Second,
	)
	t.Cleanup(cancel)

	return ctx
}

// TestPoolRoundRobin tests that a run of round-robin calls across a
// three-member pool all answer correctly.
func TestPoolRoundRobin(t *testing.T) {
	t.Parallel()

	ctx := poolCtx(t)

	pool, err := NewPool(PoolConfig[*echoWorker, double, int]{
		ID:   "doubling",
		Size: 3,
		Factory: func(idx int) *actor.Builder[*echoWorker] {
			return workerBuilder(&echoWorker{idx: idx})
		},
	})
	require.NoError(t, err)
	require.Equal(t, 3, pool.Size())
	require.Equal(t, "doubling", pool.ID())

	for i := 1; i <= 9; i++ {
		resp, err := pool.Call(ctx, double{v: i})
		require.NoError(t, err)
		require.Equal(t, i*2, resp)
	}

	require.NoError(t, pool.Stop(ctx))
}

// TestPoolBroadcastCall tests collecting responses from every member.
func TestPoolBroadcastCall(t *testing.T) {
	t.Parallel()

	ctx := poolCtx(t)

	pool, err := NewPool(PoolConfig[*echoWorker, double, int]{
		ID:   "broadcast",
		Size: 4,
		Factory: func(idx int) *actor.Builder[*echoWorker] {
			return workerBuilder(&echoWorker{idx: idx})
		},
	})
	require.NoError(t, err)

	results := pool.BroadcastCall(ctx, double{v: 21})
	require.True(t, AllSucceeded(results))
	require.Equal(t, []int{42, 42, 42, 42}, CollectSuccesses(results))

	require.NoError(t, pool.Stop(ctx))
}

// TestPoolDefaultSize tests that a non-positive size falls back to one
// member.
func TestPoolDefaultSize(t *testing.T) {
	t.Parallel()

	ctx := poolCtx(t)

	pool, err := NewPool(PoolConfig[*echoWorker, double, int]{
		ID:   "single",
		Size: 0,
		Factory: func(idx int) *actor.Builder[*echoWorker] {
			return workerBuilder(&echoWorker{idx: idx})
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, pool.Size())

	resp, err := pool.Call(ctx, double{v: 2})
	require.NoError(t, err)
	require.Equal(t, 4, resp)

	require.NoError(t, pool.Stop(ctx))
}

// TestPoolInvalidFactory tests that a misconfigured member builder fails
// pool construction.
func TestPoolInvalidFactory(t *testing.T) {
	t.Parallel()

	_, err := NewPool(PoolConfig[*echoWorker, double, int]{
		ID:   "broken",
		Size: 2,
		Factory: func(idx int) *actor.Builder[*echoWorker] {
			// No mailbox mode chosen: Spawn must fail.
			return actor.Build(&echoWorker{idx: idx})
		},
	})
	require.Error(t, err)
}

// TestPoolStopIdempotentMembers tests that stopping a pool twice does not
// error out on the already-stopped members.
func TestPoolStopIdempotentMembers(t *testing.T) {
	t.Parallel()

	ctx := poolCtx(t)

	pool, err := NewPool(PoolConfig[*echoWorker, double, int]{
		ID:   "stopper",
		Size: 2,
		Factory: func(idx int) *actor.Builder[*echoWorker] {
			return workerBuilder(&echoWorker{idx: idx})
		},
	})
	require.NoError(t, err)

	require.NoError(t, pool.Stop(ctx))
	require.NoError(t, pool.Stop(ctx))
}
