package l6summary

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/banshee-data/arena.tracker/internal/monitoring"
)

// ErrInvalidBins is wrapped by every invalid bin configuration.
var ErrInvalidBins = errors.New("invalid bins")

// BinMode controls whether explicit bins are extended to the end of the
// trajectory.
type BinMode string

const (
	BinFixed BinMode = "fixed"
	BinAuto  BinMode = "auto"
)

// AllLabel names the single bin used when no bins are given.
const AllLabel = "all"

// Bin is an inclusive frame interval. Before resolution with TimeBin set,
// Start and End are in minutes.
type Bin struct {
	Label string  `json:"label"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Contains reports whether frame lies in [Start, End].
func (b Bin) Contains(frame int) bool {
	f := float64(frame)
	return f >= b.Start && f <= b.End
}

// Width returns End - Start.
func (b Bin) Width() float64 { return b.End - b.Start }

// Spec describes how a trajectory is divided into bins.
type Spec struct {
	Bins    []Bin   `json:"bins,omitempty"`
	TimeBin bool    `json:"time_bin"`
	Mode    BinMode `json:"n_bins_mode,omitempty"`
}

// Validate checks every explicit bin and the mode.
func (s Spec) Validate() error {
	switch s.Mode {
	case "", BinFixed, BinAuto:
	default:
		return fmt.Errorf("%w: unknown n_bins_mode %q (want fixed or auto)", ErrInvalidBins, s.Mode)
	}
	seen := make(map[string]bool, len(s.Bins))
	for i, b := range s.Bins {
		if b.Label == "" {
			return fmt.Errorf("%w: bin %d has no label", ErrInvalidBins, i)
		}
		if seen[b.Label] {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidBins, b.Label)
		}
		seen[b.Label] = true
		if math.IsNaN(b.Start) || math.IsNaN(b.End) || b.End < b.Start {
			return fmt.Errorf("%w: bin %q has range [%v,%v]", ErrInvalidBins, b.Label, b.Start, b.End)
		}
	}
	return nil
}

// minutesToFrames is the time_bin conversion factor. Bin values are
// treated as minutes.
func minutesToFrames(fps float64) float64 { return 60 * fps }

// ResolveBins turns a Spec into inclusive frame intervals for a trajectory
// spanning [first, last]. With no explicit bins one bin labelled "all"
// covers the whole trajectory. TimeBin multiplies every boundary by
// 60*fps. Auto mode appends bins as wide as the last explicit bin until
// last is covered, then fills any gap the explicit bins leave in
// [first, last] with more bins of that width, so every frame falls in some
// bin. Filled gaps are logged as a warning.
func ResolveBins(spec Spec, fps float64, first, last int) ([]Bin, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(spec.Bins) == 0 {
		return []Bin{{Label: AllLabel, Start: float64(first), End: float64(last)}}, nil
	}
	if spec.TimeBin && !(fps > 0) {
		return nil, fmt.Errorf("%w: time_bin needs a positive fps, got %v", ErrInvalidBins, fps)
	}

	bins := slices.Clone(spec.Bins)
	if spec.TimeBin {
		k := minutesToFrames(fps)
		for i := range bins {
			bins[i].Start *= k
			bins[i].End *= k
		}
	}
	if spec.Mode != BinAuto {
		return bins, nil
	}

	width := bins[len(bins)-1].Width()
	if !(width > 0) {
		return nil, fmt.Errorf("%w: auto mode needs a last bin of positive width", ErrInvalidBins)
	}
	for bins[len(bins)-1].End < float64(last) {
		prev := bins[len(bins)-1]
		bins = append(bins, Bin{
			Label: nextLabel(prev.Label, len(bins)+1),
			Start: prev.End,
			End:   prev.End + width,
		})
	}
	for _, g := range gaps(bins, first, last) {
		n := 0
		for s := g[0]; s < g[1]; s += width {
			bins = append(bins, Bin{
				Label: nextLabel(bins[len(bins)-1].Label, len(bins)+1),
				Start: s,
				End:   math.Min(s+width, g[1]),
			})
			n++
		}
		monitoring.Warnf("[Summary] frames [%v,%v) are outside the configured bins; added %d bin(s)", g[0], g[1], n)
	}
	return bins, nil
}

// nextLabel increments an integer label, otherwise numbers by position.
func nextLabel(prev string, position int) string {
	if n, err := strconv.Atoi(prev); err == nil {
		return strconv.Itoa(n + 1)
	}
	return strconv.Itoa(position)
}

// gaps returns the frame intervals [lo, hi) within [first, last] that no
// bin covers. hi is where coverage resumes, capped at last+1.
func gaps(bins []Bin, first, last int) [][2]float64 {
	sorted := slices.Clone(bins)
	slices.SortFunc(sorted, func(a, b Bin) int { return cmp.Compare(a.Start, b.Start) })

	var out [][2]float64
	next := first // lowest frame not yet known to be covered
	for _, b := range sorted {
		if next > last {
			break
		}
		if float64(next) < b.Start {
			out = append(out, [2]float64{float64(next), math.Min(b.Start, float64(last+1))})
		}
		if end := int(math.Floor(b.End)); end >= next {
			next = end + 1
		}
	}
	if next <= last {
		out = append(out, [2]float64{float64(next), float64(last + 1)})
	}
	return out
}
