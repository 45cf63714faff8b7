package vehicle

import (
	"fmt"
	"sync"
)

// Registry owns the vehicles of a simulation. Vehicles refer to each other by
// registry index only, so there is no ownership cycle between them.
type Registry struct {
	mu       sync.RWMutex
	vehicles []*Vehicle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers v and returns its index.
func (r *Registry) Add(v *Vehicle) int {
	r.mu.Lock()
	idx := len(r.vehicles)
	r.vehicles = append(r.vehicles, v)
	r.mu.Unlock()

	v.mu.Lock()
	v.registry = r
	v.mu.Unlock()
	return idx
}

// Get returns the vehicle at idx.
func (r *Registry) Get(idx int) (*Vehicle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx < 0 || idx >= len(r.vehicles) {
		return nil, false
	}
	return r.vehicles[idx], true
}

// Len returns the number of registered vehicles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.vehicles)
}

// All returns the registered vehicles in index order.
func (r *Registry) All() []*Vehicle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Vehicle, len(r.vehicles))
	copy(out, r.vehicles)
	return out
}

// Link makes the vehicles at a and b cross traffic of each other.
func (r *Registry) Link(a, b int) error {
	va, ok := r.Get(a)
	if !ok {
		return fmt.Errorf("no vehicle at index %d", a)
	}
	vb, ok := r.Get(b)
	if !ok {
		return fmt.Errorf("no vehicle at index %d", b)
	}
	if a == b {
		return fmt.Errorf("vehicle %d cannot be its own cross traffic", a)
	}
	va.AddCrossTraffic(b)
	vb.AddCrossTraffic(a)
	return nil
}
