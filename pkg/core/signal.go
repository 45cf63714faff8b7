// pkg/core/signal.go
package core

import (
	"fmt"
	"strings"
)

// Color is the state of a traffic signal.
type Color string

const (
	ColorGo   Color = "go"
	ColorStop Color = "stop"
)

// Opposite returns the color a signal switches to on its next toggle.
func (c Color) Opposite() Color {
	if c == ColorGo {
		return ColorStop
	}
	return ColorGo
}

// ParseColor accepts go/green/lightgreen and stop/red, case-insensitive.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "go", "green", "lightgreen":
		return ColorGo, nil
	case "stop", "red":
		return ColorStop, nil
	default:
		return "", fmt.Errorf("unknown signal color %q", s)
	}
}

// SignalState is a signal as published to renderers on each frame.
type SignalState struct {
	Axis  string
	Color Color
}
