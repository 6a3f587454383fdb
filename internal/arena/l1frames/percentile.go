package l1frames

import (
	"math"
	"slices"
)

// Percentile returns the p-th percentile (p in [0,100]) of values using
// linear interpolation between closest ranks, position p/100*(n-1). This
// matches numpy's default method, which reference images and thresholds
// produced elsewhere were computed with. values is not modified. An empty
// slice yields NaN.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Median returns the 50th percentile of values; for even counts this is the
// mean of the two middle values.
func Median(values []float64) float64 {
	return Percentile(values, 50)
}
