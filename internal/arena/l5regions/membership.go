package l5regions

import (
	"context"
	"fmt"
	"math"

	"github.com/banshee-data/arena.tracker/internal/arena/l4tracks"
	"golang.org/x/sync/errgroup"
)

// Membership is the per-frame inside flag of every region, aligned to the
// trajectory rows it was evaluated from. Names preserves region order.
type Membership struct {
	Names  []string
	Frames []int
	Inside map[string][]bool
}

// Len returns the number of frames.
func (m Membership) Len() int { return len(m.Frames) }

// Fraction returns the share of frames in [lo, hi) inside region name.
// NaN when the range is empty.
func (m Membership) Fraction(name string, lo, hi int) float64 {
	in, ok := m.Inside[name]
	if !ok || hi <= lo {
		return math.NaN()
	}
	n := 0
	for _, v := range in[lo:hi] {
		if v {
			n++
		}
	}
	return float64(n) / float64(hi-lo)
}

// Evaluator holds the rasterized masks of a set of regions. Masks are
// immutable after construction, so one Evaluator can serve many
// trajectories concurrently.
type Evaluator struct {
	masks []*Mask
}

// NewEvaluator rasterizes every region onto a width x height grid. Region
// names must be unique and non-empty.
func NewEvaluator(regions []Region, width, height int) (*Evaluator, error) {
	seen := make(map[string]bool, len(regions))
	e := &Evaluator{masks: make([]*Mask, 0, len(regions))}
	for _, r := range regions {
		if seen[r.Name] {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidRegion, r.Name)
		}
		seen[r.Name] = true
		m, err := NewMask(r, width, height)
		if err != nil {
			return nil, err
		}
		e.masks = append(e.masks, m)
	}
	return e, nil
}

// Names returns the region names in definition order.
func (e *Evaluator) Names() []string {
	names := make([]string, len(e.masks))
	for i, m := range e.masks {
		names[i] = m.Name
	}
	return names
}

// Masks exposes the rasterized masks in definition order.
func (e *Evaluator) Masks() []*Mask { return e.masks }

// Evaluate computes membership for every region sequentially.
func (e *Evaluator) Evaluate(traj *l4tracks.Trajectory) Membership {
	m := e.newMembership(traj)
	for _, mask := range e.masks {
		m.Inside[mask.Name] = evaluateMask(mask, traj)
	}
	return m
}

// EvaluateParallel computes each region's series on its own goroutine. The
// result is identical to Evaluate.
func (e *Evaluator) EvaluateParallel(ctx context.Context, traj *l4tracks.Trajectory) (Membership, error) {
	m := e.newMembership(traj)
	series := make([][]bool, len(e.masks))

	g, ctx := errgroup.WithContext(ctx)
	for i, mask := range e.masks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			series[i] = evaluateMask(mask, traj)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Membership{}, err
	}
	for i, mask := range e.masks {
		m.Inside[mask.Name] = series[i]
	}
	return m, nil
}

func (e *Evaluator) newMembership(traj *l4tracks.Trajectory) Membership {
	frames := make([]int, traj.Len())
	for i, r := range traj.Rows {
		frames[i] = r.Frame
	}
	return Membership{
		Names:  e.Names(),
		Frames: frames,
		Inside: make(map[string][]bool, len(e.masks)),
	}
}

// evaluateMask looks each position up at (floor(x), floor(y)). Undefined
// positions are outside.
func evaluateMask(mask *Mask, traj *l4tracks.Trajectory) []bool {
	in := make([]bool, traj.Len())
	for i, r := range traj.Rows {
		if !r.Position().Defined() {
			continue
		}
		in[i] = mask.Contains(int(math.Floor(r.X)), int(math.Floor(r.Y)))
	}
	return in
}
