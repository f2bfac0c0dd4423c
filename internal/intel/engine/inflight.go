package engine

import "sync"

// InFlight tracks which medicines have an action awaiting a response.
// At most one action per key may be pending; distinct keys are independent.
type InFlight struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

// NewInFlight creates an empty registry
func NewInFlight() *InFlight {
	return &InFlight{pending: make(map[string]struct{})}
}

// TryAcquire marks key busy. It returns false if key is already busy.
func (f *InFlight) TryAcquire(key string) bool {
	key = NormalizeMedicine(key)

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, busy := f.pending[key]; busy {
		return false
	}
	f.pending[key] = struct{}{}
	return true
}

// Release clears key. Releasing an idle key is a no-op.
func (f *InFlight) Release(key string) {
	key = NormalizeMedicine(key)

	f.mu.Lock()
	delete(f.pending, key)
	f.mu.Unlock()
}

// Busy reports whether key has a pending action
func (f *InFlight) Busy(key string) bool {
	key = NormalizeMedicine(key)

	f.mu.Lock()
	defer f.mu.Unlock()
	_, busy := f.pending[key]
	return busy
}
