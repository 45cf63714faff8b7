// pkg/core/vehicle.go
package core

// Axis names used in frames and configuration.
const (
	AxisHorizontal = "horizontal"
	AxisVertical   = "vertical"
)

// Zone is the position of a vehicle relative to the intersection.
// It is always derived from the current position and never stored on the vehicle.
type Zone struct {
	BeforeIntersection  bool
	CloseToIntersection bool
	InIntersection      bool
}

// String returns a short name for the zone, "past" when no flag is set.
func (z Zone) String() string {
	switch {
	case z.InIntersection:
		return "in"
	case z.CloseToIntersection:
		return "close"
	case z.BeforeIntersection:
		return "before"
	default:
		return "past"
	}
}

// VehicleState is a vehicle as published to renderers on each frame.
// Position is the coordinate along the travel axis, Cross is the fixed coordinate on the other axis.
type VehicleState struct {
	ID       int
	Axis     string
	Position int
	Cross    int
	Zone     Zone
}

// X returns the canvas x coordinate of the vehicle.
func (s VehicleState) X() int {
	if s.Axis == AxisHorizontal {
		return s.Position
	}
	return s.Cross
}

// Y returns the canvas y coordinate of the vehicle.
func (s VehicleState) Y() int {
	if s.Axis == AxisHorizontal {
		return s.Cross
	}
	return s.Position
}
