package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/arena.tracker/internal/arena/l5regions"
	"github.com/banshee-data/arena.tracker/internal/arena/l6summary"
	"github.com/banshee-data/arena.tracker/internal/arena/pipeline"
	"github.com/banshee-data/arena.tracker/internal/config"
	"github.com/banshee-data/arena.tracker/internal/db"
	"github.com/banshee-data/arena.tracker/internal/fsutil"
	"github.com/banshee-data/arena.tracker/internal/render"
	"github.com/banshee-data/arena.tracker/internal/security"
	"github.com/banshee-data/arena.tracker/internal/timeutil"
)

const plotSize = 6 * vg.Inch

// app carries the dependencies shared by every command so tests can swap
// the filesystem, video opener and clock.
type app struct {
	fs     fsutil.FileSystem
	open   pipeline.SourceOpener
	clock  timeutil.Clock
	stdout io.Writer
	env    config.Env
}

// outputFlags are shared by track and batch.
type outputFlags struct {
	configPath *string
	dbPath     *string
	outDir     *string
	plots      *bool
}

func (a *app) registerOutputFlags(fs *flag.FlagSet) outputFlags {
	return outputFlags{
		configPath: fs.String("config", a.env.ConfigPath, "Tracking configuration JSON file"),
		dbPath:     fs.String("db", a.env.DBPath, "SQLite database to store runs in (empty: do not store)"),
		outDir:     fs.String("out", config.Or(a.env.OutputDir, "."), "Output directory"),
		plots:      fs.Bool("plots", false, "Write trace/heatmap PNGs and an HTML bin chart"),
	}
}

func (a *app) loadConfig(path string) (*config.TrackingConfig, error) {
	if path == "" {
		return config.DefaultTrackingConfig(), nil
	}
	return config.LoadTrackingConfigFS(a.fs, path)
}

func (a *app) openStore(path string) (*db.RunStore, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	d, err := db.NewDB(path)
	if err != nil {
		return nil, nil, err
	}
	return db.NewRunStore(d, a.clock), func() { d.Close() }, nil
}

func (a *app) runner() *pipeline.Runner {
	return &pipeline.Runner{Open: a.open, Clock: a.clock}
}

func (a *app) handleTrack(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("track", flag.ContinueOnError)
	out := a.registerOutputFlags(fs)
	video := fs.String("video", "", "Video file to track (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *video == "" {
		return errors.New("--video is required")
	}

	cfg, err := a.loadConfig(*out.configPath)
	if err != nil {
		return err
	}
	job, err := pipeline.JobFromConfig(cfg, *video)
	if err != nil {
		return err
	}
	store, closeStore, err := a.openStore(*out.dbPath)
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := a.runner().Run(ctx, job)
	if err != nil {
		return err
	}
	return a.finish(ctx, res, store, *out.outDir, *out.plots)
}

func (a *app) handleBatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	out := a.registerOutputFlags(fs)
	dir := fs.String("dir", "", "Directory of videos to track (required)")
	ext := fs.String("ext", "avi", "Video file extension")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return errors.New("--dir is required")
	}

	cfg, err := a.loadConfig(*out.configPath)
	if err != nil {
		return err
	}
	files, err := fsutil.ListByExtension(a.fs, *dir, *ext)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .%s files in %s", strings.TrimPrefix(*ext, "."), *dir)
	}
	job, err := pipeline.JobFromConfig(cfg, files[0])
	if err != nil {
		return err
	}
	store, closeStore, err := a.openStore(*out.dbPath)
	if err != nil {
		return err
	}
	defer closeStore()

	acc := &l6summary.Accumulator{}
	batchErr := a.runner().Batch(ctx, files, job, acc, func(res *pipeline.Result) error {
		return a.finish(ctx, res, store, *out.outDir, *out.plots)
	})
	var partial *pipeline.BatchError
	if batchErr != nil && !errors.As(batchErr, &partial) {
		return batchErr
	}

	names := make([]string, len(job.Regions))
	for i, r := range job.Regions {
		names[i] = r.Name
	}
	err = a.writeFile(filepath.Join(*out.outDir, "batch_summary.csv"), func(w io.Writer) error {
		return pipeline.WriteBatchCSV(w, acc, names, job.Scale, job.Bins.TimeBin)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%d of %d files tracked\n", len(acc.Files()), len(files))
	return batchErr
}

func (a *app) handleRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	dbPath := fs.String("db", a.env.DBPath, "SQLite database (required)")
	limit := fs.Int("limit", 20, "Maximum runs to list (0: all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbPath == "" {
		return errors.New("--db is required")
	}
	store, closeStore, err := a.openStore(*dbPath)
	if err != nil {
		return err
	}
	defer closeStore()

	runs, err := store.ListRuns(ctx, *limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tFILE\tFRAMES\tDISTANCE_PX\tCROSSINGS\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f\t%d\t%s\n", r.RunID, r.File, r.Frames,
			r.TotalDistancePx, r.Crossings, time.Unix(0, r.CreatedAt).UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

// output is one file written per result, named after the video.
type output struct {
	suffix string
	write  func(io.Writer) error
}

// finish writes every output for one result and stores it when a store is
// configured.
func (a *app) finish(ctx context.Context, res *pipeline.Result, store *db.RunStore, outDir string, plots bool) error {
	if err := a.fs.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", outDir, err)
	}
	base := security.OutputStem(res.Job.File)
	path := func(suffix string) string { return filepath.Join(outDir, base+suffix) }

	outputs := []output{
		{"_locations.csv", func(w io.Writer) error { return pipeline.WriteLocationCSV(w, res) }},
		{"_summary.csv", func(w io.Writer) error { return pipeline.WriteSummaryCSV(w, res) }},
		{"_frames.csv", func(w io.Writer) error { return pipeline.WriteFramesCSV(w, res) }},
		{"_crossings.csv", func(w io.Writer) error { return pipeline.WriteCrossingsCSV(w, res.Crossings.Crossings) }},
		{"_counts.csv", func(w io.Writer) error {
			return pipeline.WriteCountsCSV(w, l5regions.CountCrossings(res.Crossings.Crossings))
		}},
	}
	if plots {
		rows, cols := res.Reference.Dims()
		outputs = append(outputs,
			output{"_trace.png", func(w io.Writer) error {
				return render.TracePNG(w, res.Reference, res.Trajectory, res.Job.Regions, plotSize, plotSize)
			}},
			output{"_heatmap.png", func(w io.Writer) error {
				grid := render.HeatmapGrid(res.Trajectory, cols, rows, 0)
				return render.HeatmapPNG(w, grid, base, plotSize, plotSize)
			}},
			output{"_bins.html", func(w io.Writer) error {
				return render.BinChartHTML(w, base, res.Summary, res.Membership.Names)
			}},
		)
	}
	for _, o := range outputs {
		if err := a.writeFile(path(o.suffix), o.write); err != nil {
			return err
		}
	}

	if store == nil {
		return nil
	}
	run, err := store.SaveResult(ctx, res)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "stored run %s\n", run.RunID)
	return nil
}

func (a *app) writeFile(path string, write func(io.Writer) error) error {
	f, err := a.fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
