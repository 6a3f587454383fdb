package l4tracks

import (
	"fmt"
	"math"

	"github.com/banshee-data/arena.tracker/internal/arena/l1frames"
	"github.com/banshee-data/arena.tracker/internal/arena/l3locate"
	"github.com/banshee-data/arena.tracker/internal/monitoring"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var logf = monitoring.Tagged("Tracker")

// Tracker assembles a trajectory from a frame source. A Tracker holds no
// per-run state and may be reused; it is not safe to share one source
// between concurrent Track calls.
type Tracker struct {
	Params l3locate.Params
	Meta   RunMeta

	// OnFrame, if set, is called after every successfully located frame.
	OnFrame func(row Row, res l3locate.Result)
}

// NewTracker validates p and returns a Tracker for it.
func NewTracker(p l3locate.Params, meta RunMeta) (*Tracker, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	meta.Params = p
	return &Tracker{Params: p, Meta: meta}, nil
}

// Track reads up to n frames from src (n <= 0 reads until the source is
// exhausted), localizes each against reference and records the centroid
// and step distance. The first unreadable frame stops tracking; the
// returned trajectory then holds exactly the frames processed so far.
// The caller owns src and must close it.
func (t *Tracker) Track(src l1frames.Source, reference *mat.Dense, crop l1frames.Crop, n int) (*Trajectory, error) {
	if err := t.Params.Validate(); err != nil {
		return nil, err
	}
	traj := &Trajectory{Meta: t.Meta}
	traj.Meta.Params = t.Params
	if n > 0 {
		traj.Rows = make([]Row, 0, n)
	}

	var prev l3locate.Position
	for f := 0; n <= 0 || f < n; f++ {
		var prior *l3locate.Prior
		if f > 0 {
			if pr, ok := l3locate.PriorFrom(prev); ok {
				prior = &pr
			}
		}

		ok, res, err := l3locate.Next(src, crop, reference, t.Params, prior)
		if err != nil {
			return traj, fmt.Errorf("frame %d (video frame %d): %w", f, t.Meta.StartFrame+f, err)
		}
		if !ok {
			if n > 0 {
				logf("source ended early at frame %d of %d", f, n)
			}
			break
		}

		row := Row{
			Frame:      f,
			X:          res.Centroid.X,
			Y:          res.Centroid.Y,
			DistancePx: 0,
		}
		if f > 0 {
			row.DistancePx = Distance(prev, res.Centroid)
		}
		traj.Rows = append(traj.Rows, row)
		prev = res.Centroid
		if t.OnFrame != nil {
			t.OnFrame(row, res)
		}
	}

	logf("total frames processed: %d (undefined: %d)", traj.Len(), traj.Undefined())
	return traj, nil
}

// Distance is the Euclidean distance between two positions. It is NaN when
// either is undefined.
func Distance(a, b l3locate.Position) float64 {
	if !a.Defined() || !b.Defined() {
		return math.NaN()
	}
	return floats.Distance([]float64{a.X, a.Y}, []float64{b.X, b.Y}, 2)
}
