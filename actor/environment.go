package actor

import (
	"context"
	"sync"
	"time"
)

// runningSignal resolves exactly once, when an actor's event loop exits. It
// is shared by every address and weak address of the actor; any number of
// waiters may observe it.
type runningSignal struct {
	done chan struct{}
	once sync.Once

	// err is the terminal error (start failure), written before done is
	// closed.
	err error
}

func newRunningSignal() *runningSignal {
	return &runningSignal{
		done: make(chan struct{}),
	}
}

func (r *runningSignal) signal(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

func (r *runningSignal) stopped() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (r *runningSignal) wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err

	case <-ctx.Done():
		return ctx.Err()
	}
}

// actorCore is the state shared between an actor's event loop and every
// address or typed projection pointing at it. It owns nothing that would
// prolong the actor: lifetime is governed by the channel's strong-reference
// count and the payloads flowing through it.
type actorCore[A any] struct {
	id       string
	chn      *channel[A]
	handlers *handlerTable[A]
	running  *runningSignal

	// restartable is set when the environment carries a restart
	// strategy. Restart requests against a non-restartable actor fail at
	// the address, so a restart payload never reaches its loop.
	restartable bool

	// callTimeout bounds the await of every call against this actor.
	// Zero means no deadline.
	callTimeout time.Duration
}

// streamTask is the erased form of a stream item bound to its handler.
type streamTask[A any] func(ctx context.Context, a A, acx *Context[A])

// environment owns an actor value and its mailbox receiver, and drives the
// dispatch loop. It is consumed by launch: the loop runs on a spawner task
// and terminates by returning the actor value through the join handle.
type environment[A Actor[A]] struct {
	core    *actorCore[A]
	spawner Spawner

	// strategy is nil for non-restartable actors.
	strategy RestartStrategy[A]

	// bindStream, when set, starts the stream pump and returns the
	// channel of erased stream dispatch closures. The pump stops when
	// the given context is cancelled or the stream ends.
	bindStream func(ctx context.Context) <-chan streamTask[A]
}

// launch starts the environment's event loop on the spawner and returns the
// actor's first strong address together with the loop's join handle.
func (e *environment[A]) launch(a A) (*Addr[A], *JoinHandle[A]) {
	addr := &Addr[A]{core: e.core}
	handle := newJoinHandle[A]()

	e.spawner.Spawn(func() {
		final, err := e.run(a)
		handle.complete(final, err)
	})

	return addr, handle
}

// run is the event loop. It owns the actor value for its entire lifetime:
// handlers and lifecycle hooks execute strictly serialised on this task,
// with exclusive access to both the actor and its context record.
func (e *environment[A]) run(a A) (A, error) {
	core := e.core

	// loopCtx spans the whole loop including restarts; it fences the
	// stream pump and the blocking mailbox receive.
	loopCtx, cancelLoop := context.WithCancel(context.Background())
	defer cancelLoop()

	// terminate closes the mailbox on every ordinary exit; this also
	// closes it when a panicking handler unwinds the loop.
	defer core.chn.close()

	acx := newContext(core, e.spawner)
	acx.beginRun()

	log.Debugf("Starting actor, actor_id=%s", core.id)

	var runErr error
	if err := a.Started(acx.runCtx, acx); err != nil {
		log.Debugf("Actor start failed, actor_id=%s, err=%v",
			core.id, err)

		runErr = startFailed(err)

		return e.terminate(a, acx, runErr)
	}

	var stream <-chan streamTask[A]
	if e.bindStream != nil {
		stream = e.bindStream(loopCtx)
	}

dispatch:
	for {
		p, ok := e.next(loopCtx, &stream, a, acx)
		if !ok {
			// Mailbox drained with no strong senders left:
			// implicit stop.
			break dispatch
		}

		switch p.kind {
		case payloadTask:
			log.Tracef("Actor processing message, actor_id=%s, "+
				"msg_type=%s", core.id, p.msgType)

			p.task(acx.runCtx, a, acx)

		case payloadStop:
			break dispatch

		case payloadRestart:
			if e.strategy == nil {
				// A restart payload can only be enqueued
				// through an address of a restartable actor;
				// tolerate a stray one rather than die on it.
				log.Warnf("Ignoring restart for "+
					"non-restartable actor, actor_id=%s",
					core.id)
				continue
			}

			log.Debugf("Restarting actor, actor_id=%s", core.id)

			// Side tasks belong to the run that scheduled them.
			// The mailbox itself is untouched: everything queued
			// during the transition is handled after the fresh
			// Started completes.
			acx.endRun()
			acx.beginRun()

			fresh, err := e.strategy.Refresh(acx.runCtx, a, acx)
			if err != nil {
				runErr = startFailed(err)
				break dispatch
			}
			a = fresh
		}
	}

	return e.terminate(a, acx, runErr)
}

// next yields the loop's next mailbox payload. Without a stream it blocks on
// the mailbox. With a stream it interleaves both sources: stream items are
// dispatched inline between mailbox payloads so neither source can starve
// the other. When the stream ends, *stream is set to nil and the loop keeps
// serving the mailbox alone. Returns false once the mailbox is closed and
// drained.
func (e *environment[A]) next(loopCtx context.Context,
	stream *<-chan streamTask[A], a A, acx *Context[A]) (payload[A], bool) {

	core := e.core

	if *stream == nil {
		p, err := core.chn.recv(loopCtx)
		if err != nil {
			return payload[A]{}, false
		}

		return p, true
	}

	// Give the stream one non-blocking turn per mailbox payload, so a
	// busy mailbox cannot starve it indefinitely (and vice versa: the
	// select below always re-checks the mailbox after a stream item).
	select {
	case task, ok := <-*stream:
		if !ok {
			*stream = nil

			p, err := core.chn.recv(loopCtx)
			if err != nil {
				return payload[A]{}, false
			}

			return p, true
		}
		task(acx.runCtx, a, acx)

	default:
	}

	for {
		if p, ok, drained := core.chn.tryRecv(); ok {
			return p, true
		} else if drained {
			return payload[A]{}, false
		}

		select {
		case <-core.chn.recvReady():
			// Re-check the queue.

		case task, ok := <-*stream:
			if !ok {
				// Stream ended: drop the arm, keep serving
				// the mailbox.
				*stream = nil

				p, err := core.chn.recv(loopCtx)
				if err != nil {
					return payload[A]{}, false
				}

				return p, true
			}
			task(acx.runCtx, a, acx)

		case <-loopCtx.Done():
			return payload[A]{}, false
		}
	}
}

// terminate performs the loop's single exit path: run Stopped, stop the
// children in registration order, cancel side tasks, close and drain the
// mailbox, then resolve the running signal.
func (e *environment[A]) terminate(a A, acx *Context[A], runErr error) (A,
	error) {

	core := e.core

	a.Stopped(acx.runCtx, acx)

	// Stop children best effort: a child that is already gone is not an
	// error of ours.
	for _, child := range acx.children {
		if err := child.Stop(); err != nil {
			log.Debugf("Child stop failed, actor_id=%s, "+
				"child_id=%s, err=%v", core.id, child.ID(), err)
		}
	}

	acx.endRun()

	// Close the mailbox so further sends fail, then cancel whatever was
	// left behind so blocked callers resolve.
	core.chn.close()

	dropped := 0
	for {
		p, ok, _ := core.chn.tryRecv()
		if !ok {
			break
		}
		dropped++
		if p.drop != nil {
			p.drop()
		}
	}

	core.running.signal(runErr)

	log.Debugf("Actor terminated, actor_id=%s, dropped_messages=%d",
		core.id, dropped)

	return a, runErr
}
