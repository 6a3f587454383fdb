package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/arena.tracker/internal/arena/l1frames"
	"github.com/banshee-data/arena.tracker/internal/arena/pipeline"
	"github.com/banshee-data/arena.tracker/internal/fsutil"
	"github.com/banshee-data/arena.tracker/internal/monitoring"
	"github.com/banshee-data/arena.tracker/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

const testConfig = `{
  "loc_thresh": 99,
  "window_size": 6,
  "reference_frames": 36,
  "reference_max_attempts": 1000,
  "regions": [
    {"name": "left", "vertices": [{"x": 0, "y": 0}, {"x": 10, "y": 0}, {"x": 10, "y": 20}, {"x": 0, "y": 20}]},
    {"name": "right", "vertices": [{"x": 10, "y": 0}, {"x": 20, "y": 0}, {"x": 20, "y": 20}, {"x": 10, "y": 20}]}
  ]
}`

// walkingVideo is a grey 20x20 arena with a bright 2x2 subject moving one
// column right every two frames.
func walkingVideo() []*mat.Dense {
	frames := make([]*mat.Dense, 36)
	for i := range frames {
		m := mat.NewDense(20, 20, nil)
		for r := range 20 {
			for c := range 20 {
				m.Set(r, c, 50)
			}
		}
		for dr := range 2 {
			for dc := range 2 {
				m.Set(10+dr, i/2+dc, 200)
			}
		}
		frames[i] = m
	}
	return frames
}

func newTestApp(t *testing.T, videos ...string) (*app, *fsutil.MemoryFileSystem, *bytes.Buffer) {
	t.Helper()
	known := map[string]bool{}
	for _, v := range videos {
		known[v] = true
	}
	mem := fsutil.NewMemoryFileSystem()
	out := &bytes.Buffer{}
	a := &app{
		fs: mem,
		open: func(path string) (l1frames.SeekSource, error) {
			if !known[path] {
				return nil, fmt.Errorf("cannot open %q", path)
			}
			return l1frames.NewSliceSource(25, walkingVideo()...), nil
		},
		clock:  timeutil.NewMockClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)),
		stdout: out,
	}
	return a, mem, out
}

func writeConfig(t *testing.T, mem *fsutil.MemoryFileSystem) string {
	t.Helper()
	require.NoError(t, mem.WriteFile("config/arena.json", []byte(testConfig), 0o644))
	return "config/arena.json"
}

func TestTrackWritesOutputsAndStoresRun(t *testing.T) {
	t.Parallel()
	a, mem, out := newTestApp(t, "videos/trial1.avi")
	dbPath := filepath.Join(t.TempDir(), "arena.db")
	ctx := context.Background()

	err := a.handleTrack(ctx, []string{
		"--config", writeConfig(t, mem),
		"--video", "videos/trial1.avi",
		"--db", dbPath,
		"--out", "results",
		"--plots",
	})
	require.NoError(t, err)

	for _, suffix := range []string{
		"_locations.csv", "_summary.csv", "_frames.csv", "_crossings.csv", "_counts.csv",
		"_trace.png", "_heatmap.png", "_bins.html",
	} {
		assert.True(t, mem.Exists(filepath.Join("results", "trial1"+suffix)), suffix)
	}
	locations, err := mem.ReadFile("results/trial1_locations.csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(locations)), "\n")
	assert.Len(t, lines, 37)
	assert.True(t, strings.HasPrefix(lines[0], "File,Frame,X,Y,Distance_px,left,right"), lines[0])
	assert.Contains(t, out.String(), "stored run ")

	out.Reset()
	require.NoError(t, a.handleRuns(ctx, []string{"--db", dbPath}))
	assert.Contains(t, out.String(), "videos/trial1.avi")
	assert.Contains(t, out.String(), "2025-06-01T09:00:00Z")
}

func TestTrackWithoutStore(t *testing.T) {
	t.Parallel()
	a, mem, out := newTestApp(t, "trial2.avi")

	require.NoError(t, a.handleTrack(context.Background(), []string{"--video", "trial2.avi", "--out", "o"}))
	assert.True(t, mem.Exists("o/trial2_summary.csv"))
	assert.False(t, mem.Exists("o/trial2_trace.png"))
	assert.Empty(t, out.String())
}

func TestBatchReportsPartialFailure(t *testing.T) {
	t.Parallel()
	a, mem, out := newTestApp(t, "videos/a.avi")
	require.NoError(t, mem.WriteFile("videos/a.avi", []byte("x"), 0o644))
	require.NoError(t, mem.WriteFile("videos/b.avi", []byte("x"), 0o644))
	require.NoError(t, mem.WriteFile("videos/notes.txt", []byte("x"), 0o644))

	err := a.handleBatch(context.Background(), []string{
		"--config", writeConfig(t, mem), "--dir", "videos", "--out", "results",
	})
	var batchErr *pipeline.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Contains(t, batchErr.Failed, "videos/b.avi")
	assert.Len(t, batchErr.Failed, 1)

	assert.True(t, mem.Exists("results/a_summary.csv"))
	assert.False(t, mem.Exists("results/b_summary.csv"))
	summary, err := mem.ReadFile("results/batch_summary.csv")
	require.NoError(t, err)
	assert.Contains(t, string(summary), "videos/a.avi")
	assert.NotContains(t, string(summary), "videos/b.avi")
	assert.Contains(t, out.String(), "1 of 2 files tracked")
}

func TestBatchNoMatchingFiles(t *testing.T) {
	t.Parallel()
	a, mem, _ := newTestApp(t)
	require.NoError(t, mem.WriteFile("videos/readme.md", []byte("x"), 0o644))

	err := a.handleBatch(context.Background(), []string{"--dir", "videos", "--ext", ".mp4"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .mp4 files")
}

func TestRequiredFlags(t *testing.T) {
	t.Parallel()
	a, _, _ := newTestApp(t)
	ctx := context.Background()

	assert.ErrorContains(t, a.handleTrack(ctx, nil), "--video is required")
	assert.ErrorContains(t, a.handleBatch(ctx, nil), "--dir is required")
	assert.ErrorContains(t, a.handleRuns(ctx, nil), "--db is required")
}

func TestTrackRejectsBadConfig(t *testing.T) {
	t.Parallel()
	a, mem, _ := newTestApp(t, "v.avi")
	require.NoError(t, mem.WriteFile("bad.json", []byte(`{"loc_thresh": 150}`), 0o644))

	err := a.handleTrack(context.Background(), []string{"--config", "bad.json", "--video", "v.avi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loc_thresh")

	err = a.handleTrack(context.Background(), []string{"--config", "absent.json", "--video", "v.avi"})
	assert.ErrorContains(t, err, "stat config file")
}

func TestTrackUsesReferenceFile(t *testing.T) {
	t.Parallel()
	a, mem, _ := newTestApp(t, "v.avi", "empty.avi")
	cfg := strings.Replace(testConfig, "{", `{"reference_file": "missing.avi",`, 1)
	require.NoError(t, mem.WriteFile("ref.json", []byte(cfg), 0o644))

	err := a.handleTrack(context.Background(), []string{"--config", "ref.json", "--video", "v.avi", "--out", "o"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.avi")
	assert.False(t, mem.Exists("o/v_summary.csv"))

	cfg = strings.Replace(testConfig, "{", `{"reference_file": "empty.avi",`, 1)
	require.NoError(t, mem.WriteFile("ref.json", []byte(cfg), 0o644))
	require.NoError(t, a.handleTrack(context.Background(), []string{"--config", "ref.json", "--video", "v.avi", "--out", "o"}))
	assert.True(t, mem.Exists("o/v_summary.csv"))
}
