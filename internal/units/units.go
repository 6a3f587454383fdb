// Package units provides shared constants and validation for distance units
// and the pixel to real-world scale applied to trajectories.
package units

import (
	"errors"
	"fmt"
	"math"
)

// Unit constants
const (
	PX = "px"
	MM = "mm"
	CM = "cm"
	M  = "m"
	IN = "in"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{PX, MM, CM, M, IN}

// ErrInvalidScale is wrapped by every Scale validation failure.
var ErrInvalidScale = errors.New("invalid scale")

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "px, mm, cm, m, in"
}

// metres per unit; px has no physical length
var metres = map[string]float64{
	MM: 0.001,
	CM: 0.01,
	M:  1,
	IN: 0.0254,
}

// ConvertLength converts a length between two physical units. Pixel
// lengths cannot be converted and return an error.
func ConvertLength(v float64, from, to string) (float64, error) {
	f, okFrom := metres[from]
	t, okTo := metres[to]
	if !okFrom || !okTo {
		return 0, fmt.Errorf("cannot convert %s to %s", from, to)
	}
	return v * f / t, nil
}

// Scale maps pixel distances to a real unit: PixelDistance pixels in the
// frame measure Distance units in the arena.
type Scale struct {
	Distance      float64 `json:"distance"`
	PixelDistance float64 `json:"pixel_distance"`
	Unit          string  `json:"unit"`
}

// IsZero reports whether no scale was configured.
func (s Scale) IsZero() bool { return s == Scale{} }

// Validate checks the scale is usable.
func (s Scale) Validate() error {
	if !IsValid(s.Unit) {
		return fmt.Errorf("%w: unit %q (valid: %s)", ErrInvalidScale, s.Unit, GetValidUnitsString())
	}
	if !(s.Distance > 0) || math.IsInf(s.Distance, 0) {
		return fmt.Errorf("%w: distance must be positive, got %v", ErrInvalidScale, s.Distance)
	}
	if !(s.PixelDistance > 0) || math.IsInf(s.PixelDistance, 0) {
		return fmt.Errorf("%w: pixel_distance must be positive, got %v", ErrInvalidScale, s.PixelDistance)
	}
	return nil
}

// Factor returns units per pixel.
func (s Scale) Factor() float64 { return s.Distance / s.PixelDistance }

// Convert scales a pixel distance. NaN stays NaN.
func (s Scale) Convert(px float64) float64 { return px * s.Factor() }

// Column is the export column name for scaled distances, e.g. Distance_cm.
func (s Scale) Column() string { return "Distance_" + s.Unit }
