package db

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/arena.tracker/internal/arena/l3locate"
	"github.com/banshee-data/arena.tracker/internal/arena/l4tracks"
	"github.com/banshee-data/arena.tracker/internal/arena/l5regions"
	"github.com/banshee-data/arena.tracker/internal/arena/l6summary"
	"github.com/banshee-data/arena.tracker/internal/arena/pipeline"
	"github.com/banshee-data/arena.tracker/internal/monitoring"
	"github.com/banshee-data/arena.tracker/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "arena.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testResult() *pipeline.Result {
	nan := math.NaN()
	traj := &l4tracks.Trajectory{
		Meta: l4tracks.RunMeta{
			File: "trial1.avi", FPS: 25, StartFrame: 10,
			Params: l3locate.Params{LocThresh: 99.5, Method: l3locate.MethodAbs},
		},
		Rows: []l4tracks.Row{
			{Frame: 0, X: 1, Y: 1, DistancePx: 0},
			{Frame: 1, X: 4, Y: 5, DistancePx: 5},
			{Frame: 2, X: nan, Y: nan, DistancePx: nan},
			{Frame: 3, X: 4, Y: 6, DistancePx: nan},
		},
	}
	return &pipeline.Result{
		Trajectory: traj,
		Crossings: l5regions.CrossingResult{
			Mode:      l5regions.PairRankOrder,
			Crossings: []l5regions.Crossing{{RegionFrom: "left", RegionTo: "right", FrameFrom: 0, FrameTo: 1}},
			Mismatch:  &l5regions.Mismatch{From: 2, To: 1},
		},
		Summary: []l6summary.Row{
			{
				Bin:         l6summary.Bin{Label: "1", Start: 0, End: 1},
				Frames:      2,
				DistancePx:  5,
				Occupancy:   map[string]float64{"left": 0.5, "right": 0.5},
				CrossRegion: 1,
				RangeMinutes: &[2]float64{
					0, 1.0 / 1500,
				},
			},
			{
				Bin:       l6summary.Bin{Label: "2", Start: 2, End: 3},
				Occupancy: map[string]float64{"left": nan, "right": nan},
			},
		},
		Elapsed: 1500 * time.Millisecond,
	}
}

func TestNewDBPragmas(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	var journal string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)

	var busy, fk int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busy))
	assert.Equal(t, 5000, busy)
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrateVersion(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	v, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)

	// Already at latest: no-op.
	require.NoError(t, db.MigrateUp())

	require.NoError(t, db.MigrateDown())
	v, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'arena_runs'`).Scan(&n))
	assert.Zero(t, n)
}

func TestSaveResultRoundTrip(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	clock := timeutil.NewMockClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	store := NewRunStore(db, clock)
	ctx := context.Background()

	res := testResult()
	run, err := store.SaveResult(ctx, res)
	require.NoError(t, err)
	require.NotEmpty(t, run.RunID)
	assert.Equal(t, clock.Now().UnixNano(), run.CreatedAt)

	got, err := store.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, "trial1.avi", got.File)
	assert.Equal(t, 4, got.Frames)
	assert.Equal(t, 1, got.UndefinedFrames)
	assert.InDelta(t, 5.0, got.TotalDistancePx, 1e-12)
	assert.Equal(t, "rank", got.Pairing)
	assert.Equal(t, 1, got.Crossings)
	assert.Equal(t, &l5regions.Mismatch{From: 2, To: 1}, got.Mismatch)
	assert.Equal(t, int64(1500), got.ElapsedMs)

	traj, err := store.LoadTrajectory(ctx, run.RunID)
	require.NoError(t, err)
	require.Equal(t, 4, traj.Len())
	assert.Equal(t, 10, traj.Meta.StartFrame)
	assert.Equal(t, res.Trajectory.Meta.Params, traj.Meta.Params)
	assert.Equal(t, 4.0, traj.Rows[1].X)
	assert.Equal(t, 5.0, traj.Rows[1].Y)
	assert.True(t, math.IsNaN(traj.Rows[2].X))
	assert.True(t, math.IsNaN(traj.Rows[2].Y))
	assert.True(t, math.IsNaN(traj.Rows[3].DistancePx))
	assert.Equal(t, 6.0, traj.Rows[3].Y)

	crossings, err := store.LoadCrossings(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.Crossings.Crossings, crossings)

	summary, err := store.LoadSummary(ctx, run.RunID)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, res.Summary[0], summary[0])
	assert.Nil(t, summary[1].RangeMinutes)
	assert.True(t, math.IsNaN(summary[1].Occupancy["left"]))
}

func TestListRunsNewestFirst(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	clock := timeutil.NewMockClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	store := NewRunStore(db, clock)
	ctx := context.Background()

	var ids []string
	for _, f := range []string{"a.avi", "b.avi", "c.avi"} {
		run := &Run{File: f, FPS: 30, Pairing: "rank"}
		require.NoError(t, store.InsertRun(ctx, run))
		ids = append(ids, run.RunID)
		clock.Advance(time.Second)
	}

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{runs[0].RunID, runs[1].RunID, runs[2].RunID})
	assert.Nil(t, runs[0].Mismatch)

	runs, err = store.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestDeleteRunCascades(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	store := NewRunStore(db, nil)
	ctx := context.Background()

	run, err := store.SaveResult(ctx, testResult())
	require.NoError(t, err)
	require.NoError(t, store.DeleteRun(ctx, run.RunID))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM arena_trajectory WHERE run_id = ?`, run.RunID).Scan(&n))
	assert.Zero(t, n)

	err = store.DeleteRun(ctx, run.RunID)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()
	store := NewRunStore(setupTestDB(t), nil)

	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = store.LoadTrajectory(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestInsertTrajectoryRequiresRun(t *testing.T) {
	t.Parallel()
	store := NewRunStore(setupTestDB(t), nil)

	err := store.InsertTrajectory(context.Background(), "orphan", []l4tracks.Row{{Frame: 0}})
	assert.Error(t, err)
}

func TestInsertPiecewise(t *testing.T) {
	t.Parallel()
	store := NewRunStore(setupTestDB(t), nil)
	ctx := context.Background()
	res := testResult()

	run := &Run{RunID: "fixed-id", File: "x.avi", FPS: 25, Pairing: "nearest"}
	require.NoError(t, store.InsertRun(ctx, run))
	assert.NotZero(t, run.CreatedAt)
	require.NoError(t, store.InsertTrajectory(ctx, run.RunID, res.Trajectory.Rows))
	require.NoError(t, store.InsertCrossings(ctx, run.RunID, res.Crossings.Crossings))
	require.NoError(t, store.InsertSummary(ctx, run.RunID, res.Summary))

	traj, err := store.LoadTrajectory(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, 4, traj.Len())
	summary, err := store.LoadSummary(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Len(t, summary, 2)
}
