// Package zone derives a vehicle's position relative to the intersection.
//
// Vehicles travel toward decreasing coordinates. The far border is the one a
// vehicle reaches first, the near border is where it leaves the intersection.
package zone

import "github.com/trafficsignal/trafficsignal/pkg/core"

// ProximityThreshold is how many units before the far border count as close to the intersection.
const ProximityThreshold = 5

// Axis selects the borders relevant to one direction of travel.
type Axis interface {
	Name() string
	Far(b *core.Bounds) int
	Near(b *core.Bounds) int
}

type horizontal struct{}

func (horizontal) Name() string            { return core.AxisHorizontal }
func (horizontal) Far(b *core.Bounds) int  { return b.East }
func (horizontal) Near(b *core.Bounds) int { return b.West }

type vertical struct{}

func (vertical) Name() string            { return core.AxisVertical }
func (vertical) Far(b *core.Bounds) int  { return b.South }
func (vertical) Near(b *core.Bounds) int { return b.North }

var (
	// Horizontal is right-to-left travel: enters at East, leaves at West.
	Horizontal Axis = horizontal{}
	// Vertical is bottom-to-top travel: enters at South, leaves at North.
	Vertical Axis = vertical{}
)

// ByName returns the axis for a core axis name.
func ByName(name string) (Axis, bool) {
	switch name {
	case core.AxisHorizontal:
		return Horizontal, true
	case core.AxisVertical:
		return Vertical, true
	}
	return nil, false
}

// Evaluate computes the zone of position along axis.
func Evaluate(position int, b *core.Bounds, axis Axis) core.Zone {
	far := axis.Far(b)
	near := axis.Near(b)

	return core.Zone{
		BeforeIntersection:  position > far+ProximityThreshold,
		CloseToIntersection: position <= far+ProximityThreshold && position > far,
		InIntersection:      position <= far && position >= near,
	}
}
