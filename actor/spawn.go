package actor

import (
	"context"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Spawner abstracts the task executor the runtime schedules onto. The core
// never selects an executor itself: event loops, stream pumps and timer
// tasks all go through a Spawner, so embedding programs can route them into
// their own scheduling machinery (worker pools, instrumented goroutines,
// test harnesses).
type Spawner interface {
	// Spawn runs the given function on a new task.
	Spawn(run func())
}

// GoSpawner is the default Spawner: each task is a plain goroutine.
type GoSpawner struct{}

// Spawn implements Spawner.
func (GoSpawner) Spawn(run func()) {
	go run()
}

// defaultSpawner is the process-wide spawner used by services, side tasks
// and builders that don't override it.
var (
	defaultSpawnerMu sync.RWMutex
	defaultSpawner   Spawner = GoSpawner{}
)

// SetDefaultSpawner replaces the process-wide spawner. Intended to be called
// once during program initialisation, before any actors are launched.
func SetDefaultSpawner(s Spawner) {
	defaultSpawnerMu.Lock()
	defer defaultSpawnerMu.Unlock()

	defaultSpawner = s
}

// DefaultSpawner returns the process-wide spawner.
func DefaultSpawner() Spawner {
	defaultSpawnerMu.RLock()
	defer defaultSpawnerMu.RUnlock()

	return defaultSpawner
}

// JoinHandle resolves when an event-loop task terminates, yielding the final
// actor value. The value can be consumed exactly once: the first Join call
// receives it, later calls observe fn.None. The terminal error (start
// failure) is reported to every joiner.
type JoinHandle[A any] struct {
	done chan struct{}

	mu    sync.Mutex
	taken bool
	val   A
	err   error
}

func newJoinHandle[A any]() *JoinHandle[A] {
	return &JoinHandle[A]{
		done: make(chan struct{}),
	}
}

// complete records the loop outcome and releases all joiners.
func (h *JoinHandle[A]) complete(val A, err error) {
	h.mu.Lock()
	h.val = val
	h.err = err
	h.mu.Unlock()

	close(h.done)
}

// Join blocks until the task terminates. The first caller recovers the
// actor value; everyone observes the terminal error, if any.
func (h *JoinHandle[A]) Join(ctx context.Context) (fn.Option[A], error) {
	select {
	case <-h.done:

	case <-ctx.Done():
		return fn.None[A](), ctx.Err()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.taken {
		return fn.None[A](), h.err
	}
	h.taken = true

	return fn.Some(h.val), h.err
}
