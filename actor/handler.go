package actor

import (
	"context"
	"reflect"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// TellHandler links an actor type A to a fire-and-forget message type M. The
// actor value comes first so that method expressions register naturally:
//
//	actor.Handle(b, (*Counter).HandlePush)
type TellHandler[A, M any] func(a A, ctx context.Context, acx *Context[A], msg M)

// CallHandler links an actor type A to a request/response message type M
// with response type R.
type CallHandler[A, M, R any] func(a A, ctx context.Context, acx *Context[A], msg M) R

// unitType is the response type identity recorded for fire-and-forget
// handlers, mirroring messages whose response is the unit type.
var unitType = reflect.TypeOf(struct{}{})

// handlerEntry is the erased form of a registered handler. invoke performs
// the typed call internally: it downcasts the message exactly once, at a
// site created together with the registration, so the event loop itself
// never inspects message types.
type handlerEntry[A any] struct {
	// respType is the registered response type identity; unitType for
	// tell handlers.
	respType reflect.Type

	// invoke dispatches the message. A non-nil promise is completed with
	// the response.
	invoke func(ctx context.Context, a A, acx *Context[A], msg any,
		reply *Promise[any])
}

// handlerTable is the per-actor dispatch table mapping message type identity
// to its handler. Each (A, M) pair has at most one handler; re-registering
// replaces.
type handlerTable[A any] struct {
	mu       sync.RWMutex
	handlers map[reflect.Type]handlerEntry[A]
}

func newHandlerTable[A any]() *handlerTable[A] {
	return &handlerTable[A]{
		handlers: make(map[reflect.Type]handlerEntry[A]),
	}
}

// msgType extracts the type identity of a message type parameter. Using
// reflect on a nil pointer avoids allocating a zero value.
func msgType[M any]() reflect.Type {
	return reflect.TypeOf((*M)(nil)).Elem()
}

func (t *handlerTable[A]) register(key reflect.Type, e handlerEntry[A]) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.handlers[key]; exists {
		log.Debugf("Replacing handler registration, msg_type=%v", key)
	}
	t.handlers[key] = e
}

func (t *handlerTable[A]) lookup(key reflect.Type) (handlerEntry[A], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.handlers[key]

	return e, ok
}

// registerTell installs a fire-and-forget handler into a table. Package
// level because methods cannot have their own type parameters.
func registerTell[A, M any](t *handlerTable[A], h TellHandler[A, M]) {
	t.register(msgType[M](), handlerEntry[A]{
		respType: unitType,
		invoke: func(ctx context.Context, a A, acx *Context[A],
			msg any, reply *Promise[any]) {

			h(a, ctx, acx, msg.(M))

			// A call against a tell handler observes the unit
			// response once the handler ran.
			if reply != nil {
				reply.Complete(fn.Ok[any](struct{}{}))
			}
		},
	})
}

// registerCall installs a request/response handler into a table.
func registerCall[A, M, R any](t *handlerTable[A], h CallHandler[A, M, R]) {
	t.register(msgType[M](), handlerEntry[A]{
		respType: reflect.TypeOf((*R)(nil)).Elem(),
		invoke: func(ctx context.Context, a A, acx *Context[A],
			msg any, reply *Promise[any]) {

			resp := h(a, ctx, acx, msg.(M))

			if reply != nil {
				reply.Complete(fn.Ok[any](resp))
			}
		},
	})
}
