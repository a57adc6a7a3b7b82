package engine

import (
	"sync"
	"weak"

	"github.com/wnxd/uclua/emulator"
)

// Registry maps raw core handles back to the engine objects wrapping them.
// Values are weak: an entry never keeps an engine alive.
type Registry struct {
	mu      sync.Mutex
	entries map[emulator.Handle]entry
}

type entry struct {
	engine weak.Pointer[Engine]
	owner  *engineState
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry, creating it on first use.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[emulator.Handle]entry)}
}

// Register inserts or overwrites the entry for h.
func (r *Registry) Register(h emulator.Handle, e *Engine) {
	r.mu.Lock()
	r.entries[h] = entry{engine: weak.Make(e), owner: e.st}
	r.mu.Unlock()
}

// Lookup returns the engine registered for h. A collected engine is treated
// as absent.
func (r *Registry) Lookup(h emulator.Handle) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ent, ok := r.entries[h]; ok {
		if e := ent.engine.Value(); e != nil {
			return e, nil
		}
		delete(r.entries, h)
	}
	return nil, &NotRegisteredError{Handle: h}
}

// Evict removes the entry for h if present.
func (r *Registry) Evict(h emulator.Handle) {
	r.mu.Lock()
	delete(r.entries, h)
	r.mu.Unlock()
}

// release removes the entry for h only if it still belongs to owner. A
// finalizer running late must not drop an entry for a newer engine that
// reused the handle.
func (r *Registry) release(h emulator.Handle, owner *engineState) {
	r.mu.Lock()
	if ent, ok := r.entries[h]; ok && ent.owner == owner {
		delete(r.entries, h)
	}
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
