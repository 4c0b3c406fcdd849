package actorutil

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/roasbeef/minibal/actor"
)

// PoolConfig holds configuration for creating a new actor pool.
type PoolConfig[A actor.Actor[A], M, R any] struct {
	// ID is the identifier for the pool; members are named "<ID>-<idx>".
	ID string

	// Size is the number of actor instances to create.
	Size int

	// Factory builds the launch configuration for each pool member. The
	// builder must have a mailbox mode chosen and a call handler for M
	// registered.
	Factory func(idx int) *actor.Builder[A]
}

// Pool distributes messages across multiple actor instances using
// round-robin scheduling. This enables horizontal scaling of actor
// workloads by spreading requests across a set of identically-shaped
// workers.
type Pool[A actor.Actor[A], M, R any] struct {
	id string

	// addrs holds the member addresses for lifecycle management.
	addrs []*actor.Addr[A]

	// callers holds the typed projections used for message sending.
	callers []*actor.Caller[M, R]

	// next is the atomic counter for round-robin selection.
	next atomic.Uint64
}

// NewPool creates a pool with the specified number of actor instances.
// Each member is built by the factory and launched immediately. On any
// launch failure the already-launched members are stopped and the error is
// returned.
func NewPool[A actor.Actor[A], M, R any](
	cfg PoolConfig[A, M, R]) (*Pool[A, M, R], error) {

	if cfg.Size <= 0 {
		cfg.Size = 1
	}

	p := &Pool[A, M, R]{
		id:      cfg.ID,
		addrs:   make([]*actor.Addr[A], 0, cfg.Size),
		callers: make([]*actor.Caller[M, R], 0, cfg.Size),
	}

	for i := 0; i < cfg.Size; i++ {
		b := cfg.Factory(i).WithID(fmt.Sprintf("%s-%d", cfg.ID, i))

		addr, err := b.Spawn()
		if err != nil {
			p.stopAll()
			return nil, fmt.Errorf("pool member %d: %w", i, err)
		}

		caller, err := actor.CallerFor[R, M](addr)
		if err != nil {
			addr.Release()
			p.stopAll()
			return nil, fmt.Errorf("pool member %d: %w", i, err)
		}

		p.addrs = append(p.addrs, addr)
		p.callers = append(p.callers, caller)
	}

	return p, nil
}

// ID returns the identifier for this pool.
func (p *Pool[A, M, R]) ID() string {
	return p.id
}

// Size returns the number of actors in the pool.
func (p *Pool[A, M, R]) Size() int {
	return len(p.callers)
}

// Call sends a message to the next actor in round-robin order and awaits
// the response.
func (p *Pool[A, M, R]) Call(ctx context.Context, msg M) (R, error) {
	idx := p.next.Add(1) % uint64(len(p.callers))

	return p.callers[idx].Call(ctx, msg)
}

// Tell sends a fire-and-forget message to the next actor in round-robin
// order.
func (p *Pool[A, M, R]) Tell(ctx context.Context, msg M) error {
	idx := p.next.Add(1) % uint64(len(p.callers))

	return p.callers[idx].Send(ctx, msg)
}

// Broadcast sends a message to every actor in the pool. Useful for cache
// invalidation, configuration updates, or coordinated shutdown signals.
func (p *Pool[A, M, R]) Broadcast(ctx context.Context, msg M) {
	for _, c := range p.callers {
		_ = c.Send(ctx, msg)
	}
}

// BroadcastCall calls every actor in the pool concurrently and collects
// the results in member order.
func (p *Pool[A, M, R]) BroadcastCall(ctx context.Context,
	msg M) []fn.Result[R] {

	return ParallelCallSame(ctx, p.callers, msg)
}

// Callers returns a copy of the typed projections in the pool.
func (p *Pool[A, M, R]) Callers() []*actor.Caller[M, R] {
	callers := make([]*actor.Caller[M, R], len(p.callers))
	copy(callers, p.callers)

	return callers
}

// Stop gracefully stops all pool members and waits for each to exit.
func (p *Pool[A, M, R]) Stop(ctx context.Context) error {
	p.stopAll()

	for _, addr := range p.addrs {
		if err := addr.Join(ctx); err != nil {
			return err
		}
	}

	return nil
}

// stopAll requests a stop from every member without waiting. Members that
// are already gone are skipped.
func (p *Pool[A, M, R]) stopAll() {
	for _, addr := range p.addrs {
		_ = addr.Stop()
	}
}
