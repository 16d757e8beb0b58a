package realtime

import (
	"log/slog"
	"slices"
	"sync"
)

// registry holds event listeners keyed by kind. Each registration gets a
// monotonically increasing id, so unregistration is O(1) and dispatch order
// is registration order within a kind.
type registry struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[Kind]map[uint64]func(Event)
}

func newRegistry() *registry {
	return &registry{listeners: make(map[Kind]map[uint64]func(Event))}
}

// add registers fn under kind and returns a removal func. Each call is a
// distinct registration: Go funcs are not comparable, so registering the
// same closure twice under one kind yields two invocations per event.
func (r *registry) add(kind Kind, fn func(Event)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	set, ok := r.listeners[kind]
	if !ok {
		set = make(map[uint64]func(Event))
		r.listeners[kind] = set
	}
	set[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		if set, ok := r.listeners[kind]; ok {
			delete(set, id)
		}
		r.mu.Unlock()
	}
}

// collect snapshots the listeners for kind followed by the wildcard set,
// each in registration order: exact-kind listeners always fire before
// wildcard listeners. The snapshot lets dispatch run without holding the
// registry lock, so a listener may register or remove listeners.
func (r *registry) collect(kind Kind) []func(Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fns := r.appendSorted(nil, kind)
	if kind != KindAll {
		fns = r.appendSorted(fns, KindAll)
	}
	return fns
}

func (r *registry) appendSorted(fns []func(Event), kind Kind) []func(Event) {
	ids := make([]uint64, 0, len(r.listeners[kind]))
	for id := range r.listeners[kind] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, r.listeners[kind][id])
	}
	return fns
}

// statusRegistry holds connection-state observers in registration order.
type statusRegistry struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]func(State)
}

func newStatusRegistry() *statusRegistry {
	return &statusRegistry{listeners: make(map[uint64]func(State))}
}

func (r *statusRegistry) add(fn func(State)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

func (r *statusRegistry) collect() []func(State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]uint64, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	fns := make([]func(State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, r.listeners[id])
	}
	return fns
}

// notify invokes every registered observer with the given state.
func (r *statusRegistry) notify(s State, logger *slog.Logger) {
	for _, fn := range r.collect() {
		fn(s)
	}
	logger.Debug("connection state", "state", s.String())
}
