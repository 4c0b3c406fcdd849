package actor

import (
	"context"
	"sync"
	"sync/atomic"
)

// channel is the MPSC mailbox backing one actor. Senders are shared by every
// address and typed projection of the actor; the single receiver is owned by
// the event loop.
//
// A channel is either bounded (capacity > 0, blocking sends apply
// back-pressure) or unbounded (capacity == 0, sends never block). Payloads
// are delivered strictly FIFO.
//
// The channel also tracks the strong-sender reference count. Every Addr,
// Sender and Caller holds one strong reference; weak projections hold none.
// Releasing the last strong reference closes the channel, which the event
// loop treats as an implicit stop once the backlog drains.
type channel[A any] struct {
	// mu protects queue and closed.
	mu     sync.Mutex
	queue  []payload[A]
	closed bool

	// capacity is the bound on queue length, or 0 for unbounded.
	capacity int

	// refs counts live strong senders. It starts at 1 for the address
	// returned by launch.
	refs atomic.Int64

	// recvWake and sendWake carry best-effort wakeups between the single
	// receiver and blocked senders. Capacity one: a pending signal is
	// never lost, spurious wakeups are handled by re-checking the queue.
	recvWake chan struct{}
	sendWake chan struct{}

	// closedCh is closed exactly once when the channel closes, waking
	// every blocked sender and the receiver.
	closedCh  chan struct{}
	closeOnce sync.Once
}

// newChannel creates a mailbox. A capacity of 0 selects unbounded mode.
func newChannel[A any](capacity int) *channel[A] {
	c := &channel[A]{
		capacity: capacity,
		recvWake: make(chan struct{}, 1),
		sendWake: make(chan struct{}, 1),
		closedCh: make(chan struct{}),
	}
	c.refs.Store(1)

	return c
}

// wake posts a non-blocking signal on the given wake channel.
func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// send enqueues a payload, blocking while a bounded mailbox is at capacity.
// It fails with ErrMailboxClosed once the channel is closed, or with the
// context's error if the caller gives up first.
func (c *channel[A]) send(ctx context.Context, p payload[A]) error {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrMailboxClosed
		}
		if c.capacity == 0 || len(c.queue) < c.capacity {
			c.queue = append(c.queue, p)
			c.mu.Unlock()

			wake(c.recvWake)

			return nil
		}
		c.mu.Unlock()

		select {
		case <-c.sendWake:

		case <-c.closedCh:
			return ErrMailboxClosed

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// trySend enqueues a payload without blocking. A bounded mailbox at capacity
// fails with ErrMailboxFull.
func (c *channel[A]) trySend(p payload[A]) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrMailboxClosed
	}
	if c.capacity != 0 && len(c.queue) >= c.capacity {
		c.mu.Unlock()
		return ErrMailboxFull
	}
	c.queue = append(c.queue, p)
	c.mu.Unlock()

	wake(c.recvWake)

	return nil
}

// recv returns the next payload, blocking until one is available. After the
// channel closes it keeps yielding the remaining backlog and only then
// reports ErrMailboxClosed. Only the event loop may call recv.
func (c *channel[A]) recv(ctx context.Context) (payload[A], error) {
	for {
		if p, ok, drained := c.tryRecv(); ok {
			return p, nil
		} else if drained {
			return payload[A]{}, ErrMailboxClosed
		}

		select {
		case <-c.recvWake:

		case <-c.closedCh:
			// Loop again to drain anything enqueued before the
			// close won the race.

		case <-ctx.Done():
			return payload[A]{}, ctx.Err()
		}
	}
}

// tryRecv pops the next payload without blocking. The third return value is
// true once the channel is both closed and empty.
func (c *channel[A]) tryRecv() (payload[A], bool, bool) {
	c.mu.Lock()
	if len(c.queue) > 0 {
		p := c.queue[0]
		c.queue[0] = payload[A]{}
		c.queue = c.queue[1:]
		c.mu.Unlock()

		wake(c.sendWake)

		return p, true, false
	}
	drained := c.closed
	c.mu.Unlock()

	return payload[A]{}, false, drained
}

// recvReady exposes the receiver wakeup channel so the stream-attached event
// loop can select over mailbox readiness and stream items together.
func (c *channel[A]) recvReady() <-chan struct{} {
	return c.recvWake
}

// close marks the channel closed and wakes all waiters. Safe to call
// multiple times; only the first call has an effect. Payloads already queued
// remain receivable.
func (c *channel[A]) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		remaining := len(c.queue)
		c.mu.Unlock()

		log.Debugf("Mailbox closing, remaining_messages=%d", remaining)

		close(c.closedCh)
	})
}

// retain attempts to add a strong reference. It fails once the count has
// dropped to zero: a weak projection can no longer be upgraded at that
// point, which is what the address layer relies on.
func (c *channel[A]) retain() bool {
	for {
		refs := c.refs.Load()
		if refs <= 0 {
			return false
		}
		if c.refs.CompareAndSwap(refs, refs+1) {
			return true
		}
	}
}

// release drops a strong reference. Releasing the last one closes the
// channel, letting the event loop drain and exit.
func (c *channel[A]) release() {
	if c.refs.Add(-1) == 0 {
		c.close()
	}
}

// strongRefs reports the current strong-sender count.
func (c *channel[A]) strongRefs() int64 {
	return c.refs.Load()
}
