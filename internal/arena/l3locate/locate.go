package l3locate

import (
	"math"

	"github.com/banshee-data/arena.tracker/internal/arena/l1frames"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Position is a subject location in cropped-frame pixel coordinates
// (X = column, Y = row). Either coordinate is NaN when nothing survived
// thresholding.
type Position struct {
	X float64
	Y float64
}

// Undefined is the position reported for an empty thresholded map.
var Undefined = Position{X: math.NaN(), Y: math.NaN()}

// Defined reports whether both coordinates are numbers.
func (p Position) Defined() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y)
}

// Prior is an integer pixel position used to centre the window.
type Prior struct {
	Row int
	Col int
}

// PriorFrom rounds a position half-to-even to the nearest pixel. ok is false
// for an undefined position, in which case no window can be applied.
func PriorFrom(p Position) (Prior, bool) {
	if !p.Defined() {
		return Prior{}, false
	}
	return Prior{Row: int(math.RoundToEven(p.Y)), Col: int(math.RoundToEven(p.X))}, true
}

// Result is the outcome of localizing one frame.
type Result struct {
	Diff     *mat.Dense // Thresholded, possibly windowed, difference map
	Centroid Position
	Frame    *mat.Dense // Cropped input frame
}

// Locate computes the subject centroid for one cropped frame. prior may be
// nil; windowing only happens when p.UseWindow is set and a prior exists.
// An all-zero thresholded map yields an Undefined centroid, not an error.
func Locate(frame, reference *mat.Dense, p Params, prior *Prior) (Result, error) {
	if err := l1frames.CheckShape(frame, reference); err != nil {
		return Result{}, err
	}

	dif := Difference(frame, reference, p.Method)
	if p.UseWindow && prior != nil {
		applyWindow(dif, p, *prior)
	}
	threshold(dif, p.LocThresh)

	return Result{
		Diff:     dif,
		Centroid: CenterOfMass(dif),
		Frame:    frame,
	}, nil
}

// Difference returns the signed difference map for method, truncated toward
// zero so the map is integer valued as the reference may hold fractional
// medians.
func Difference(frame, reference *mat.Dense, method Method) *mat.Dense {
	rows, cols := frame.Dims()
	dif := mat.NewDense(rows, cols, nil)
	switch method {
	case MethodDark:
		dif.Sub(reference, frame)
	default:
		dif.Sub(frame, reference)
	}
	abs := method == MethodAbs || method == ""
	dif.Apply(func(_, _ int, v float64) float64 {
		if abs {
			v = math.Abs(v)
		}
		return math.Trunc(v)
	}, dif)
	return dif
}

// applyWindow shifts dif so its minimum is zero and down-weights everything
// outside the square window around prior by (1 - WindowWeight). The window
// spans [prior-size/2, prior+size/2) and is clamped at the low edges only.
func applyWindow(dif *mat.Dense, p Params, prior Prior) {
	rows, cols := dif.Dims()
	data := dif.RawMatrix().Data

	shift := -floats.Min(data)
	floats.AddConst(shift, data)

	weights := mat.NewDense(rows, cols, nil)
	weights.Apply(func(_, _ int, _ float64) float64 { return 1 - p.WindowWeight }, weights)

	half := p.WindowSize / 2
	r0, r1 := max(prior.Row-half, 0), min(prior.Row+half, rows)
	c0, c1 := max(prior.Col-half, 0), min(prior.Col+half, cols)
	for r := r0; r < r1; r++ {
		for c := c0; c < c1; c++ {
			weights.Set(r, c, 1)
		}
	}
	dif.MulElem(dif, weights)
}

// threshold zeroes every value strictly below the given percentile of the map.
func threshold(dif *mat.Dense, percentile float64) {
	data := dif.RawMatrix().Data
	cut := l1frames.Percentile(data, percentile)
	for i, v := range data {
		if v < cut {
			data[i] = 0
		}
	}
}

// CenterOfMass returns the intensity-weighted mean (row, col) of m as a
// Position. A zero total mass gives Undefined.
func CenterOfMass(m *mat.Dense) Position {
	rows, cols := m.Dims()
	var total, sumR, sumC float64
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := m.At(r, c)
			total += v
			sumR += v * float64(r)
			sumC += v * float64(c)
		}
	}
	if total == 0 {
		return Undefined
	}
	return Position{X: sumC / total, Y: sumR / total}
}

// Next reads one frame from src, crops it and locates the subject. ok is
// false when the source yields no frame; the other results are then unset.
func Next(src l1frames.Source, crop l1frames.Crop, reference *mat.Dense, p Params, prior *Prior) (ok bool, res Result, err error) {
	frame, ok := src.Next()
	if !ok {
		return false, Result{}, nil
	}
	res, err = Locate(crop.Apply(frame), reference, p, prior)
	if err != nil {
		return false, Result{}, err
	}
	return true, res, nil
}
