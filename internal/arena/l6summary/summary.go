package l6summary

import (
	"math"

	"github.com/banshee-data/arena.tracker/internal/arena/l4tracks"
	"github.com/banshee-data/arena.tracker/internal/arena/l5regions"
)

// Row is the aggregate of one bin.
type Row struct {
	Bin        Bin     `json:"bin"`
	Frames     int     `json:"frames"`
	DistancePx float64 `json:"distance_px"`

	// Occupancy is the fraction of the bin's frames spent inside each
	// region; NaN when the bin holds no frames.
	Occupancy map[string]float64 `json:"occupancy,omitempty"`

	// CrossRegion counts crossings whose FrameTo lies in the bin.
	CrossRegion int `json:"cross_region"`

	// RangeMinutes holds the bin boundaries in minutes when TimeBin is set.
	RangeMinutes *[2]float64 `json:"range_minutes,omitempty"`
}

// Summarize aggregates traj into the bins resolved from spec. membership
// may be nil when no regions are defined. A nil crossings slice is derived
// from membership with rank-order pairing; pass an empty non-nil slice to
// count none. An empty trajectory has no bins.
func Summarize(traj *l4tracks.Trajectory, membership *l5regions.Membership, crossings []l5regions.Crossing, spec Spec) ([]Row, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if traj.Len() == 0 {
		return nil, nil
	}
	fps := traj.Meta.FPS
	bins, err := ResolveBins(spec, fps, traj.FirstFrame(), traj.LastFrame())
	if err != nil {
		return nil, err
	}
	if crossings == nil && membership != nil {
		crossings = l5regions.DetectCrossings(*membership, l5regions.PairRankOrder).Crossings
	}

	rows := make([]Row, len(bins))
	for i, b := range bins {
		rows[i] = summarizeBin(traj, membership, crossings, b)
		if spec.TimeBin && len(spec.Bins) > 0 {
			k := minutesToFrames(fps)
			rows[i].RangeMinutes = &[2]float64{b.Start / k, b.End / k}
		}
	}
	return rows, nil
}

func summarizeBin(traj *l4tracks.Trajectory, membership *l5regions.Membership, crossings []l5regions.Crossing, b Bin) Row {
	row := Row{Bin: b}
	lo, hi := -1, -1 // row index range [lo, hi)
	for i, r := range traj.Rows {
		if !b.Contains(r.Frame) {
			continue
		}
		if lo < 0 {
			lo = i
		}
		hi = i + 1
		row.Frames++
		if !math.IsNaN(r.DistancePx) {
			row.DistancePx += r.DistancePx
		}
	}

	if membership != nil {
		row.Occupancy = make(map[string]float64, len(membership.Names))
		for _, name := range membership.Names {
			if lo < 0 {
				row.Occupancy[name] = math.NaN()
				continue
			}
			row.Occupancy[name] = membership.Fraction(name, lo, hi)
		}
	}

	for _, c := range crossings {
		if b.Contains(c.FrameTo) {
			row.CrossRegion++
		}
	}
	return row
}

// FrameRow is one trajectory row joined with the aggregate of the first
// bin containing it. Summary is nil for frames outside every bin.
type FrameRow struct {
	l4tracks.Row
	Summary *Row
}

// Broadcast joins every trajectory row with its bin aggregate, preserving
// one output row per frame.
func Broadcast(traj *l4tracks.Trajectory, rows []Row) []FrameRow {
	out := make([]FrameRow, len(traj.Rows))
	for i, r := range traj.Rows {
		out[i].Row = r
		for j := range rows {
			if rows[j].Bin.Contains(r.Frame) {
				out[i].Summary = &rows[j]
				break
			}
		}
	}
	return out
}
