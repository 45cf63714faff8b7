// Package vehicle holds the vehicle entity and the registry used to resolve cross traffic.
package vehicle

import (
	"io"
	"sync"

	"github.com/trafficsignal/trafficsignal/internal/move"
	"github.com/trafficsignal/trafficsignal/internal/zone"
	"github.com/trafficsignal/trafficsignal/pkg/core"
)

// Config is the static movement configuration of a vehicle.
type Config struct {
	ID       int
	Position int // initial coordinate along the travel axis
	Cross    int // fixed coordinate on the other axis
	Size     int // travel-axis size, used as the wrap modulus
	Step     int // units advanced per tick
	Reset    int // coordinate the vehicle snaps to after leaving the canvas
}

// Vehicle moves along one axis toward decreasing coordinates.
type Vehicle struct {
	cfg    Config
	axis   zone.Axis
	bounds *core.Bounds

	mu       sync.RWMutex
	position int
	strategy move.Strategy
	cross    []int
	registry *Registry
	resource io.Closer
	cancel   func()
	disposed bool
}

// New creates a vehicle at cfg.Position. bounds is shared and must not be modified afterwards.
func New(cfg Config, bounds *core.Bounds, axis zone.Axis) *Vehicle {
	return &Vehicle{
		cfg:      cfg,
		axis:     axis,
		bounds:   bounds,
		position: cfg.Position,
	}
}

// ID returns the configured vehicle ID.
func (v *Vehicle) ID() int {
	return v.cfg.ID
}

// Axis returns the travel axis.
func (v *Vehicle) Axis() zone.Axis {
	return v.axis
}

// Position returns the current coordinate along the travel axis.
func (v *Vehicle) Position() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.position
}

// Zone evaluates the current zone. It is recomputed on every call.
func (v *Vehicle) Zone() core.Zone {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return zone.Evaluate(v.position, v.bounds, v.axis)
}

// State returns a consistent snapshot for renderers.
func (v *Vehicle) State() core.VehicleState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return core.VehicleState{
		ID:       v.cfg.ID,
		Axis:     v.axis.Name(),
		Position: v.position,
		Cross:    v.cfg.Cross,
		Zone:     zone.Evaluate(v.position, v.bounds, v.axis),
	}
}

// SetStrategy sets the strategy applied by the next Tick.
func (v *Vehicle) SetStrategy(s move.Strategy) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.strategy = s
}

// AddCrossTraffic registers the vehicle at registry index idx as cross traffic.
func (v *Vehicle) AddCrossTraffic(idx int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cross = append(v.cross, idx)
}

// Tick applies the current strategy to the current position.
// It does nothing without a strategy or after Dispose.
func (v *Vehicle) Tick() {
	// Cross-traffic zones are read before taking our own lock so two vehicles
	// ticking at once never wait on each other.
	cross := v.crossZones()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed || v.strategy == nil {
		return
	}

	own := zone.Evaluate(v.position, v.bounds, v.axis)
	v.position = v.strategy.Move(move.Params{
		Position: v.position,
		Step:     v.cfg.Step,
		Size:     v.cfg.Size,
		Reset:    v.cfg.Reset,
	}, own, cross)
}

func (v *Vehicle) crossZones() []core.Zone {
	v.mu.RLock()
	registry := v.registry
	indices := make([]int, len(v.cross))
	copy(indices, v.cross)
	v.mu.RUnlock()

	if registry == nil {
		return nil
	}

	zones := make([]core.Zone, 0, len(indices))
	for _, idx := range indices {
		other, ok := registry.Get(idx)
		if !ok || other == v {
			continue
		}
		zones = append(zones, other.Zone())
	}
	return zones
}

// Attach hands a drawable resource to the vehicle; it is closed on Dispose.
func (v *Vehicle) Attach(resource io.Closer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resource = resource
}

// BindTimer records the cancel function of the vehicle's timer; it is called on Dispose.
func (v *Vehicle) BindTimer(cancel func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancel = cancel
}

// Disposed reports whether Dispose has been called.
func (v *Vehicle) Disposed() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.disposed
}

// Dispose cancels the timer and releases the resource. Position is left untouched.
// Only the first call does any work.
func (v *Vehicle) Dispose() error {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return nil
	}
	v.disposed = true
	cancel, resource := v.cancel, v.resource
	v.cancel, v.resource = nil, nil
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if resource != nil {
		return resource.Close()
	}
	return nil
}
