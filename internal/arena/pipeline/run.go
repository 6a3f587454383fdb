package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/arena.tracker/internal/arena/l1frames"
	"github.com/banshee-data/arena.tracker/internal/arena/l2background"
	"github.com/banshee-data/arena.tracker/internal/arena/l4tracks"
	"github.com/banshee-data/arena.tracker/internal/arena/l5regions"
	"github.com/banshee-data/arena.tracker/internal/arena/l6summary"
	"github.com/banshee-data/arena.tracker/internal/monitoring"
	"github.com/banshee-data/arena.tracker/internal/timeutil"
	"gonum.org/v1/gonum/mat"
)

var logf = monitoring.Tagged("Pipeline")

// Result is everything produced for one run.
type Result struct {
	Job        Job
	Reference  *mat.Dense
	Trajectory *l4tracks.Trajectory
	Evaluator  *l5regions.Evaluator
	Membership l5regions.Membership
	Crossings  l5regions.CrossingResult
	Summary    []l6summary.Row
	Frames     []l6summary.FrameRow // Summary broadcast onto every frame
	Started    time.Time
	Elapsed    time.Duration
}

// ScaledDistances returns each row's distance in the job's scale unit, or
// nil when no scale is configured.
func (r *Result) ScaledDistances() []float64 {
	if r.Job.Scale.IsZero() {
		return nil
	}
	out := make([]float64, r.Trajectory.Len())
	for i, row := range r.Trajectory.Rows {
		out[i] = r.Job.Scale.Convert(row.DistancePx)
	}
	return out
}

// Runner executes jobs.
type Runner struct {
	Open  SourceOpener
	Clock timeutil.Clock
}

// NewRunner returns a Runner using the real clock.
func NewRunner(open SourceOpener) *Runner {
	return &Runner{Open: open, Clock: timeutil.RealClock{}}
}

// Run processes one job. Validation errors are returned before any source
// is opened.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	res := &Result{Job: job, Started: clock.Now()}

	ref, err := r.reference(job)
	if err != nil {
		return nil, err
	}
	res.Reference = ref

	traj, err := r.track(job, ref)
	if err != nil {
		return nil, err
	}
	res.Trajectory = traj

	rows, cols := ref.Dims()
	res.Evaluator, err = l5regions.NewEvaluator(job.Regions, cols, rows)
	if err != nil {
		return nil, err
	}
	res.Membership, err = res.Evaluator.EvaluateParallel(ctx, traj)
	if err != nil {
		return nil, err
	}
	res.Crossings = l5regions.DetectCrossings(res.Membership, job.Pairing)

	crossings := res.Crossings.Crossings
	if crossings == nil {
		crossings = []l5regions.Crossing{}
	}
	var membership *l5regions.Membership
	if len(job.Regions) > 0 {
		membership = &res.Membership
	}
	res.Summary, err = l6summary.Summarize(traj, membership, crossings, job.Bins)
	if err != nil {
		return nil, err
	}
	res.Frames = l6summary.Broadcast(traj, res.Summary)

	res.Elapsed = clock.Since(res.Started)
	logf("%s: %d frames, %.1f px travelled, %d crossings, %d bins in %s",
		filepath.Base(job.File), traj.Len(), traj.TotalDistance(),
		len(res.Crossings.Crossings), len(res.Summary), res.Elapsed)
	return res, nil
}

// segmentEnd is the exclusive end of the tracked segment in src.
func segmentEnd(job Job, src l1frames.SeekSource) int {
	end := job.EndFrame
	if count := src.FrameCount(); end == 0 || (count > 0 && end > count) {
		end = count
	}
	return end
}

// reference builds the background image on its own source, which is closed
// before tracking opens the next one. The job's ReferenceFile, when set,
// is sampled over the same segment instead of the tracked video.
func (r *Runner) reference(job Job) (*mat.Dense, error) {
	file := job.referenceFile()
	src, err := r.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file, err)
	}
	defer closeSource(src, file)

	ref, err := l2background.Build(src, job.Crop, l2background.Options{
		NumFrames:   job.ReferenceFrames,
		Start:       job.StartFrame,
		End:         segmentEnd(job, src),
		MaxAttempts: job.ReferenceMaxAttempts,
		Rand:        job.Rand,
	})
	if err != nil {
		return nil, fmt.Errorf("reference for %s from %s: %w", job.File, file, err)
	}
	if file != job.File {
		logf("%s: reference built from %s", filepath.Base(job.File), filepath.Base(file))
	}
	return ref, nil
}

func (r *Runner) track(job Job, ref *mat.Dense) (*l4tracks.Trajectory, error) {
	src, err := r.Open(job.File)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", job.File, err)
	}
	defer closeSource(src, job.File)

	fps := src.FPS()
	if job.FPS > 0 {
		fps = job.FPS
	}
	end := segmentEnd(job, src)
	if err := src.Seek(job.StartFrame); err != nil {
		return nil, fmt.Errorf("seek %s to frame %d: %w", job.File, job.StartFrame, err)
	}
	tracker, err := l4tracks.NewTracker(job.Params, l4tracks.RunMeta{
		File:       job.File,
		FPS:        fps,
		StartFrame: job.StartFrame,
	})
	if err != nil {
		return nil, err
	}
	return tracker.Track(src, ref, job.Crop, end-job.StartFrame)
}

func closeSource(src l1frames.Source, file string) {
	if err := src.Close(); err != nil {
		monitoring.Warnf("[Pipeline] failed to close %s: %v", file, err)
	}
}

// BatchError collects per-file failures from Batch.
type BatchError struct {
	Failed map[string]error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d file(s) failed", len(e.Failed))
}

// Batch runs job once per file, adding each file's summary to acc. A file
// that fails is logged and skipped; the others still run. onResult, when
// non-nil, sees every successful result in order. The context is checked
// between files only.
func (r *Runner) Batch(ctx context.Context, files []string, job Job, acc *l6summary.Accumulator, onResult func(*Result) error) error {
	var failed map[string]error
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		logf("batch %d/%d: %s", i+1, len(files), file)

		j := job
		j.File = file
		res, err := r.Run(ctx, j)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			monitoring.Warnf("[Pipeline] %s: %v", file, err)
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[file] = err
			continue
		}
		acc.Add(file, res.Summary)
		if onResult != nil {
			if err := onResult(res); err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
		}
	}
	if failed != nil {
		return &BatchError{Failed: failed}
	}
	return nil
}
