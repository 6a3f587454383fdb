package l4tracks

import (
	"math"

	"github.com/banshee-data/arena.tracker/internal/arena/l3locate"
)

// Row is one processed frame. X and Y are NaN when the frame's thresholded
// map was empty; DistancePx is NaN whenever either endpoint is undefined.
type Row struct {
	Frame      int     `json:"frame"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	DistancePx float64 `json:"distance_px"`
}

// Position returns the row's centroid.
func (r Row) Position() l3locate.Position {
	return l3locate.Position{X: r.X, Y: r.Y}
}

// RunMeta echoes the inputs a trajectory was produced from.
type RunMeta struct {
	File       string          `json:"file"`
	FPS        float64         `json:"fps"`
	StartFrame int             `json:"start_frame"`
	Params     l3locate.Params `json:"params"`
}

// Trajectory is the ordered per-frame record of one run. Rows are
// 0-indexed from the start of the analysed segment: Rows[i].Frame == i. The
// video frame of row i is Meta.StartFrame + i.
type Trajectory struct {
	Rows []Row
	Meta RunMeta
}

// Len returns the number of processed frames.
func (t *Trajectory) Len() int { return len(t.Rows) }

// FirstFrame and LastFrame return the frame index bounds. Both are -1 for an
// empty trajectory.
func (t *Trajectory) FirstFrame() int {
	if len(t.Rows) == 0 {
		return -1
	}
	return t.Rows[0].Frame
}

func (t *Trajectory) LastFrame() int {
	if len(t.Rows) == 0 {
		return -1
	}
	return t.Rows[len(t.Rows)-1].Frame
}

// TotalDistance sums every defined distance.
func (t *Trajectory) TotalDistance() float64 {
	var sum float64
	for _, r := range t.Rows {
		if !math.IsNaN(r.DistancePx) {
			sum += r.DistancePx
		}
	}
	return sum
}

// Undefined counts frames with no centroid.
func (t *Trajectory) Undefined() int {
	n := 0
	for _, r := range t.Rows {
		if !r.Position().Defined() {
			n++
		}
	}
	return n
}
