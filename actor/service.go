package actor

import (
	"context"
	"reflect"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// registry is the process-wide mapping from actor type identity to the
// singleton address owned by the registry. Values are stored erased and
// downcast at the typed lookup sites; this is the single place where that
// coupling lives.
var registry = struct {
	sync.Mutex
	entries map[reflect.Type]any
}{
	entries: make(map[reflect.Type]any),
}

// serviceKey extracts the type identity of an actor type parameter.
func serviceKey[A any]() reflect.Type {
	return reflect.TypeOf((*A)(nil)).Elem()
}

// RegisterService stores addr as the process-wide singleton for its actor
// type, taking ownership of the strong handle. The previously registered
// address, if any, is returned with its strong reference intact: the caller
// decides whether to release or keep using it. Package-level generic
// function because methods cannot have their own type parameters.
func RegisterService[A Actor[A]](addr *Addr[A]) fn.Option[*Addr[A]] {
	key := serviceKey[A]()

	registry.Lock()
	defer registry.Unlock()

	prev := fn.None[*Addr[A]]()
	if e, ok := registry.entries[key]; ok {
		prev = fn.Some(e.(*Addr[A]))

		log.Debugf("Replacing registered service, service=%v", key)
	}

	registry.entries[key] = addr

	return prev
}

// FromRegistry returns the singleton address for service type A, launching
// the actor if none is registered. A registered-but-stopped entry is
// transparently replaced with a fresh launch. Concurrent first callers
// observe at most one actor created. The returned address is the caller's
// own strong handle (a clone of the registry's).
func FromRegistry[A ServiceActor[A]](_ context.Context) (*Addr[A], error) {
	key := serviceKey[A]()

	registry.Lock()
	defer registry.Unlock()

	if e, ok := registry.entries[key]; ok {
		addr := e.(*Addr[A])
		if !addr.Stopped() {
			return addr.Clone(), nil
		}

		// The cached entry went down at some point; drop our
		// reference and fall through to a fresh launch.
		log.Debugf("Replacing stopped service, service=%v", key)

		addr.Release()
		delete(registry.entries, key)
	}

	var zero A
	fresh := zero.Default()

	b := Build(fresh).Unbounded()
	fresh.RegisterHandlers(b)

	addr, err := b.Spawn()
	if err != nil {
		return nil, err
	}
	registry.entries[key] = addr

	log.Debugf("Service launched from registry, service=%v, "+
		"actor_id=%s", key, addr.ID())

	return addr.Clone(), nil
}

// LookupService returns the singleton address for actor type A without
// auto-construction, failing with ErrServiceNotFound when nothing usable is
// registered.
func LookupService[A Actor[A]]() (*Addr[A], error) {
	key := serviceKey[A]()

	registry.Lock()
	defer registry.Unlock()

	e, ok := registry.entries[key]
	if !ok {
		return nil, ErrServiceNotFound
	}

	addr := e.(*Addr[A])
	if addr.Stopped() {
		return nil, ErrServiceNotFound
	}

	return addr.Clone(), nil
}

// Register spawns the builder's actor and stores its address as the
// process-wide singleton for A. A previously registered address is
// released. Returns the caller's own strong handle.
func Register[A ServiceActor[A]](b *Builder[A]) (*Addr[A], error) {
	addr, err := b.Spawn()
	if err != nil {
		return nil, err
	}

	RegisterService(addr.Clone()).WhenSome(func(prev *Addr[A]) {
		prev.Release()
	})

	return addr, nil
}
