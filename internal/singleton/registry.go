package singleton

import (
	"sort"
	"sync"
)

// clientRegistry is the set of attached client ids. peak records the largest
// size ever observed so bursts between two polls are not lost.
type clientRegistry struct {
	mu   sync.Mutex
	ids  map[string]struct{}
	peak int
}

func newClientRegistry() *clientRegistry {
	return &clientRegistry{ids: make(map[string]struct{})}
}

func (r *clientRegistry) add(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; ok {
		return false
	}
	r.ids[id] = struct{}{}
	if len(r.ids) > r.peak {
		r.peak = len(r.ids)
	}
	return true
}

func (r *clientRegistry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; !ok {
		return false
	}
	delete(r.ids, id)
	return true
}

func (r *clientRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func (r *clientRegistry) highWater() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}

func (r *clientRegistry) list() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}
