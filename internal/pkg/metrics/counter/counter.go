package counter

import "sync"

// Registry is an explicit in-process counter set. It is injected into the
// services that record metrics instead of living as a hidden package-level
// singleton, so tests can snapshot and reset it in isolation.
type Registry struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewRegistry creates an empty counter registry.
func NewRegistry() *Registry {
	return &Registry{counts: make(map[string]int64)}
}

// Inc increments the named counter by one.
func (r *Registry) Inc(name string) {
	r.Add(name, 1)
}

// Add increments the named counter by delta.
func (r *Registry) Add(name string, delta int64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name] += delta
}

// Get returns the current value of the named counter.
func (r *Registry) Get(name string) int64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

// Snapshot returns a copy of all counters.
func (r *Registry) Snapshot() map[string]int64 {
	if r == nil {
		return map[string]int64{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.counts))
	for name, value := range r.counts {
		out[name] = value
	}
	return out
}

// Reset clears all counters.
func (r *Registry) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = make(map[string]int64)
}
