// Package locks provides in-process per-artifact reader/writer locks.
// Entries are reference counted and dropped once no holder or waiter
// remains, so the registry only grows with in-flight artifacts.
package locks

import "sync"

// Mode controls whether a lock is shared or exclusive.
type Mode string

const (
	ModeExclusive Mode = "exclusive"
	ModeShared    Mode = "shared"
)

type entry struct {
	rw   sync.RWMutex
	refs int
}

// Registry hands out locks keyed by artifact id. The zero value is ready
// to use.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Acquire blocks until id is held in the given mode and returns the release
// func. Release must be called exactly once.
func (r *Registry) Acquire(id string, mode Mode) (release func()) {
	r.mu.Lock()
	if r.entries == nil {
		r.entries = make(map[string]*entry)
	}
	e, ok := r.entries[id]
	if !ok {
		e = &entry{}
		r.entries[id] = e
	}
	e.refs++
	r.mu.Unlock()

	if mode == ModeShared {
		e.rw.RLock()
	} else {
		e.rw.Lock()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if mode == ModeShared {
				e.rw.RUnlock()
			} else {
				e.rw.Unlock()
			}

			r.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(r.entries, id)
			}
			r.mu.Unlock()
		})
	}
}

// Shared is Acquire(id, ModeShared).
func (r *Registry) Shared(id string) func() {
	return r.Acquire(id, ModeShared)
}

// Exclusive is Acquire(id, ModeExclusive).
func (r *Registry) Exclusive(id string) func() {
	return r.Acquire(id, ModeExclusive)
}

// Len returns the number of ids currently held or waited on.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
