package actor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// streamSink records stream items and mailbox messages side by side. The
// external counter lets tests wait for stream delivery, which is not
// serialised with mailbox pings.
type streamSink struct {
	BaseActor[*streamSink]

	seen *atomic.Int32

	fromStream  []int
	fromMailbox []string
}

func streamSinkBuilder(sink *streamSink,
	stream <-chan int) *Builder[*streamSink] {

	b := OnStream(sink, stream, func(s *streamSink, _ context.Context,
		_ *Context[*streamSink], item int) {

		s.fromStream = append(s.fromStream, item)
		s.seen.Add(1)
	})
	Handle(b, func(s *streamSink, _ context.Context,
		_ *Context[*streamSink], word string) {

		s.fromMailbox = append(s.fromMailbox, word)
	})

	return b
}

// TestStreamItemsHandled tests that stream items are dispatched through the
// stream handler in stream order, interleaved with mailbox traffic.
func TestStreamItemsHandled(t *testing.T) {
	t.Parallel()

	ctx := testCtx(t)

	var seen atomic.Int32
	stream := make(chan int)
	sink := &streamSink{seen: &seen}
	owning, err := streamSinkBuilder(sink, stream).SpawnOwning()
	require.NoError(t, err)
	addr := owning.Addr()

	stream <- 1
	stream <- 2
	require.NoError(t, Send(ctx, addr, "hello"))
	stream <- 3

	require.NoError(t, addr.Ping(ctx))
	require.Eventually(t, func() bool {
		return seen.Load() == 3
	}, testTimeout, time.Millisecond)

	final, err := owning.StopAndJoin(ctx)
	require.NoError(t, err)

	got := final.UnwrapOr(nil)
	require.Equal(t, []int{1, 2, 3}, got.fromStream)
	require.Equal(t, []string{"hello"}, got.fromMailbox)
}

// TestStreamCloseKeepsActorRunning tests that the end of the stream does
// not stop the actor: the mailbox keeps being served.
func TestStreamCloseKeepsActorRunning(t *testing.T) {
	t.Parallel()

	ctx := testCtx(t)

	var seen atomic.Int32
	stream := make(chan int)
	sink := &streamSink{seen: &seen}
	owning, err := streamSinkBuilder(sink, stream).SpawnOwning()
	require.NoError(t, err)
	addr := owning.Addr()

	stream <- 7
	close(stream)

	require.Eventually(t, func() bool {
		return seen.Load() == 1
	}, testTimeout, time.Millisecond)

	require.NoError(t, addr.Ping(ctx))
	require.False(t, addr.Stopped())

	require.NoError(t, Send(ctx, addr, "still-alive"))

	final, err := owning.StopAndJoin(ctx)
	require.NoError(t, err)

	got := final.UnwrapOr(nil)
	require.Equal(t, []int{7}, got.fromStream)
	require.Equal(t, []string{"still-alive"}, got.fromMailbox)
}

// TestStreamActorRejectsRestart tests that the builder refuses a restart
// strategy on a stream-attached actor.
func TestStreamActorRejectsRestart(t *testing.T) {
	t.Parallel()

	var seen atomic.Int32
	stream := make(chan int)
	b := streamSinkBuilder(&streamSink{seen: &seen}, stream).
		RestartInPlaceStrategy()

	_, err := b.Spawn()
	require.Error(t, err)
}

// TestStreamFairness tests that a continuously busy mailbox does not starve
// the stream.
func TestStreamFairness(t *testing.T) {
	t.Parallel()

	ctx := testCtx(t)

	var seen atomic.Int32
	stream := make(chan int, 16)
	sink := &streamSink{seen: &seen}
	owning, err := streamSinkBuilder(sink, stream).SpawnOwning()
	require.NoError(t, err)
	addr := owning.Addr()

	// Pre-load the stream, then keep the mailbox busy.
	for i := 0; i < 8; i++ {
		stream <- i
	}
	for i := 0; i < 64; i++ {
		require.NoError(t, Send(ctx, addr, "busy"))
	}

	require.Eventually(t, func() bool {
		return seen.Load() == 8
	}, testTimeout, time.Millisecond)

	final, err := owning.StopAndJoin(ctx)
	require.NoError(t, err)

	got := final.UnwrapOr(nil)
	require.Len(t, got.fromStream, 8,
		"stream items must be served alongside mailbox traffic")
}
