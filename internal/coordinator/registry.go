package coordinator

import (
	"context"
	"sort"
	"sync"
)

// Registry owns the live coordinators, one per configured share. Entries are
// inserted explicitly at setup and removed explicitly at teardown; removing
// an entry cancels its polling loop.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	coord  *Coordinator
	cancel context.CancelFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// Add inserts a coordinator and starts its polling loop under ctx. A
// coordinator already registered for the same share is torn down first.
func (r *Registry) Add(ctx context.Context, c *Coordinator) {
	r.mu.Lock()
	if old, ok := r.entries[c.ShareID()]; ok {
		old.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.entries[c.ShareID()] = &registryEntry{coord: c, cancel: cancel}
	r.mu.Unlock()

	go c.Run(runCtx)
}

// Remove stops and forgets the coordinator for shareID. Reports whether an
// entry existed.
func (r *Registry) Remove(shareID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[shareID]
	if !ok {
		return false
	}
	entry.cancel()
	delete(r.entries, shareID)
	return true
}

// Get returns the coordinator for shareID, or nil.
func (r *Registry) Get(shareID string) *Coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[shareID]; ok {
		return entry.coord
	}
	return nil
}

// All returns the registered coordinators ordered by share ID.
func (r *Registry) All() []*Coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()

	coords := make([]*Coordinator, 0, len(r.entries))
	for _, entry := range r.entries {
		coords = append(coords, entry.coord)
	}
	sort.Slice(coords, func(i, j int) bool {
		return coords[i].ShareID() < coords[j].ShareID()
	})
	return coords
}

// Close tears down every entry.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, entry := range r.entries {
		entry.cancel()
		delete(r.entries, id)
	}
}
