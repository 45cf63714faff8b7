// Package move decides how far a vehicle advances on one tick.
package move

import (
	"github.com/samber/lo"

	"github.com/trafficsignal/trafficsignal/pkg/core"
)

// Params are the inputs of one movement decision.
type Params struct {
	Position int // current coordinate along the travel axis
	Step     int // units advanced per tick
	Size     int // travel-axis size of the vehicle; wrap happens below -Size
	Reset    int // coordinate the vehicle snaps to after leaving the canvas
}

// Strategy computes the next position of a vehicle. Implementations are stateless
// and never look at the signal color; the caller picks the strategy from it.
type Strategy interface {
	Move(p Params, own core.Zone, cross []core.Zone) int
}

// Go is used while the vehicle's signal allows it through.
// A vehicle close to the intersection yields to cross traffic already inside.
type Go struct{}

func (Go) Move(p Params, own core.Zone, cross []core.Zone) int {
	if own.CloseToIntersection && anyInIntersection(cross) {
		return p.Position
	}
	return advance(p)
}

// Stop is used while the vehicle's signal is red: it holds at the stop line
// and lets vehicles anywhere else keep driving.
type Stop struct{}

func (Stop) Move(p Params, own core.Zone, _ []core.Zone) int {
	if own.CloseToIntersection {
		return p.Position
	}
	return advance(p)
}

// ForColor returns the strategy for a signal color.
func ForColor(c core.Color) Strategy {
	if c == core.ColorGo {
		return Go{}
	}
	return Stop{}
}

func advance(p Params) int {
	next := p.Position - p.Step
	if next < -p.Size {
		return p.Reset
	}
	return next
}

func anyInIntersection(zones []core.Zone) bool {
	return lo.SomeBy(zones, func(z core.Zone) bool {
		return z.InIntersection
	})
}
