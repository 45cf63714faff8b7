// pkg/core/street.go
package core

import "fmt"

// Bounds delimits the intersection rectangle.
// North/South are y coordinates, West/East are x coordinates.
type Bounds struct {
	North int
	South int
	East  int
	West  int
}

// Validate rejects empty or inverted intersection ranges.
func (b Bounds) Validate() error {
	if b.North >= b.South {
		return fmt.Errorf("north border %d must be above south border %d", b.North, b.South)
	}
	if b.West >= b.East {
		return fmt.Errorf("west border %d must be left of east border %d", b.West, b.East)
	}
	return nil
}
