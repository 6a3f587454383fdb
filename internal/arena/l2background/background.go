package l2background

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/banshee-data/arena.tracker/internal/arena/l1frames"
	"github.com/banshee-data/arena.tracker/internal/monitoring"
	"gonum.org/v1/gonum/mat"
)

// DefaultNumFrames is the number of frames sampled when Options.NumFrames is 0.
const DefaultNumFrames = 100

// ErrSamplingExhausted is returned when the attempt cap is reached before
// enough readable frames were collected.
var ErrSamplingExhausted = errors.New("reference sampling attempts exhausted")

var logf = monitoring.Tagged("Background")

// Options control reference sampling.
type Options struct {
	NumFrames   int        // Frames in the median (default 100)
	Start       int        // First eligible frame index
	End         int        // Exclusive upper bound; 0 means the source's frame count
	MaxAttempts int        // Total seek+read attempts; 0 means 10 x NumFrames
	Rand        *rand.Rand // Optional seeded generator for reproducible references
}

func (o Options) withDefaults(src l1frames.SeekSource) Options {
	if o.NumFrames <= 0 {
		o.NumFrames = DefaultNumFrames
	}
	if o.End <= 0 {
		o.End = src.FrameCount()
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10 * o.NumFrames
	}
	return o
}

func (o Options) intN(n int) int {
	if o.Rand != nil {
		return o.Rand.IntN(n)
	}
	return rand.IntN(n)
}

// Build samples NumFrames random frames in [Start, End), crops each one and
// returns the per-pixel median. Unreadable frames are retried with a new
// random index until MaxAttempts reads have been made in total.
func Build(src l1frames.SeekSource, crop l1frames.Crop, opts Options) (*mat.Dense, error) {
	opts = opts.withDefaults(src)
	if opts.Start < 0 || opts.End <= opts.Start {
		return nil, fmt.Errorf("invalid sampling range [%d,%d)", opts.Start, opts.End)
	}

	collection := make([]*mat.Dense, 0, opts.NumFrames)
	attempts := 0
	for len(collection) < opts.NumFrames {
		if attempts >= opts.MaxAttempts {
			return nil, fmt.Errorf("%w: collected %d/%d frames after %d attempts",
				ErrSamplingExhausted, len(collection), opts.NumFrames, attempts)
		}
		attempts++

		idx := opts.Start + opts.intN(opts.End-opts.Start)
		if err := src.Seek(idx); err != nil {
			continue
		}
		frame, ok := src.Next()
		if !ok {
			continue
		}
		frame = crop.Apply(frame)
		if len(collection) > 0 {
			if err := l1frames.CheckShape(frame, collection[0]); err != nil {
				return nil, fmt.Errorf("sampled frame %d: %w", idx, err)
			}
		}
		collection = append(collection, frame)
	}

	ref := Median(collection)
	rows, cols := ref.Dims()
	logf("reference built from %d frames (%d attempts), dimensions %dx%d",
		len(collection), attempts, rows, cols)
	return ref, nil
}

// Median returns the per-pixel median of equally shaped frames. frames must
// be non-empty.
func Median(frames []*mat.Dense) *mat.Dense {
	rows, cols := frames[0].Dims()
	ref := mat.NewDense(rows, cols, nil)
	column := make([]float64, len(frames))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			for i, f := range frames {
				column[i] = f.At(r, c)
			}
			ref.Set(r, c, l1frames.Median(column))
		}
	}
	return ref
}
