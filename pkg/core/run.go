// pkg/core/run.go
package core

import "time"

// Canvas size of the rendered scene.
const (
	CanvasWidth  = 1200
	CanvasHeight = 700
)

// Rect is a renderer-side rectangle.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// SignalHousing is the renderer geometry of one signal: the housing and the light inside it.
type SignalHousing struct {
	Rect
	LightWidth  int
	LightHeight int
}

// Light returns the light rectangle centered in the housing.
func (h SignalHousing) Light() Rect {
	return Rect{
		X:      h.X + h.Width/2 - h.LightWidth/2,
		Y:      h.Y + h.Height/2 - h.LightHeight/2,
		Width:  h.LightWidth,
		Height: h.LightHeight,
	}
}

// Sidewalk describes the four sidewalk blocks around the crossing streets.
type Sidewalk struct {
	Width                 int
	Height                int
	VerticalStreetWidth   int
	HorizontalStreetWidth int
}

// Layout is the static scene geometry handed to renderers. The simulation never reads it.
type Layout struct {
	CanvasWidth      int
	CanvasHeight     int
	Sidewalk         Sidewalk
	HorizontalLane   Rect
	VerticalLane     Rect
	HorizontalSignal SignalHousing
	VerticalSignal   SignalHousing
}

// Run identifies one simulation run from start to shutdown.
type Run struct {
	ID        string
	StartedAt time.Time
	Bounds    Bounds
	Layout    Layout
}

// Frame is the complete simulation state after a redraw request.
type Frame struct {
	Seq      uint64
	Time     time.Time
	Vehicles []VehicleState
	Signals  []SignalState
}
