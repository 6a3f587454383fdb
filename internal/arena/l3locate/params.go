package l3locate

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParams is wrapped by every Params validation failure.
var ErrInvalidParams = errors.New("invalid tracking params")

// Method selects how the frame is compared against the reference.
type Method string

const (
	MethodAbs   Method = "abs"   // Absolute difference; background polarity does not matter
	MethodLight Method = "light" // Subject is lighter than the background
	MethodDark  Method = "dark"  // Subject is darker than the background
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodAbs, MethodLight, MethodDark:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown method %q (want abs, light or dark)", ErrInvalidParams, s)
}

// Params are the per-run localization settings. Construct once, validate,
// then treat as immutable for the run.
type Params struct {
	LocThresh    float64 `json:"loc_thresh"`    // Percentile [0,100] below which differences are zeroed
	UseWindow    bool    `json:"use_window"`    // Weight the map toward the prior position
	WindowSize   int     `json:"window_size"`   // Side of the square window, pixels
	WindowWeight float64 `json:"window_weight"` // [0,1]; values outside the window are scaled by 1-WindowWeight
	Method       Method  `json:"method"`
}

// Validate checks every field range. It must be called before any frame is
// processed.
func (p Params) Validate() error {
	if math.IsNaN(p.LocThresh) || p.LocThresh < 0 || p.LocThresh > 100 {
		return fmt.Errorf("%w: loc_thresh must be in [0,100], got %v", ErrInvalidParams, p.LocThresh)
	}
	if p.WindowSize <= 0 {
		return fmt.Errorf("%w: window_size must be positive, got %d", ErrInvalidParams, p.WindowSize)
	}
	if math.IsNaN(p.WindowWeight) || p.WindowWeight < 0 || p.WindowWeight > 1 {
		return fmt.Errorf("%w: window_weight must be in [0,1], got %v", ErrInvalidParams, p.WindowWeight)
	}
	if _, err := ParseMethod(string(p.Method)); err != nil {
		return err
	}
	return nil
}
