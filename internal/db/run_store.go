package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/banshee-data/arena.tracker/internal/arena/l3locate"
	"github.com/banshee-data/arena.tracker/internal/arena/l4tracks"
	"github.com/banshee-data/arena.tracker/internal/arena/l5regions"
	"github.com/banshee-data/arena.tracker/internal/arena/l6summary"
	"github.com/banshee-data/arena.tracker/internal/arena/pipeline"
	"github.com/banshee-data/arena.tracker/internal/timeutil"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("run not found")

// Run is the header row of one persisted tracking run.
type Run struct {
	RunID           string              `json:"run_id"`
	File            string              `json:"file"`
	FPS             float64             `json:"fps"`
	StartFrame      int                 `json:"start_frame"`
	Frames          int                 `json:"frames"`
	UndefinedFrames int                 `json:"undefined_frames"`
	TotalDistancePx float64             `json:"total_distance_px"`
	Pairing         string              `json:"pairing"`
	Crossings       int                 `json:"crossings"`
	Mismatch        *l5regions.Mismatch `json:"mismatch,omitempty"`
	ParamsJSON      json.RawMessage     `json:"params_json,omitempty"`
	ElapsedMs       int64               `json:"elapsed_ms"`
	CreatedAt       int64               `json:"created_at"`
}

// RunStore persists runs with their trajectory, crossings and bin summary.
type RunStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewRunStore creates a RunStore. A nil clock uses the real clock.
func NewRunStore(db *DB, clock timeutil.Clock) *RunStore {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &RunStore{db: db.DB, clock: clock}
}

// RunFromResult builds the header row for a pipeline result.
func RunFromResult(res *pipeline.Result) (*Run, error) {
	params, err := json.Marshal(res.Trajectory.Meta.Params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	mode := res.Crossings.Mode
	if mode == "" {
		mode = l5regions.PairRankOrder
	}
	return &Run{
		File:            res.Trajectory.Meta.File,
		FPS:             res.Trajectory.Meta.FPS,
		StartFrame:      res.Trajectory.Meta.StartFrame,
		Frames:          res.Trajectory.Len(),
		UndefinedFrames: res.Trajectory.Undefined(),
		TotalDistancePx: res.Trajectory.TotalDistance(),
		Pairing:         string(mode),
		Crossings:       len(res.Crossings.Crossings),
		Mismatch:        res.Crossings.Mismatch,
		ParamsJSON:      params,
		ElapsedMs:       res.Elapsed.Milliseconds(),
	}, nil
}

// SaveResult writes a run and all of its rows in one transaction and
// returns the stored header.
func (s *RunStore) SaveResult(ctx context.Context, res *pipeline.Result) (*Run, error) {
	run, err := RunFromResult(res)
	if err != nil {
		return nil, err
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertRun(ctx, tx, s.stamp(run)); err != nil {
			return err
		}
		if err := insertTrajectory(ctx, tx, run.RunID, res.Trajectory.Rows); err != nil {
			return err
		}
		if err := insertCrossings(ctx, tx, run.RunID, res.Crossings.Crossings); err != nil {
			return err
		}
		return insertSummary(ctx, tx, run.RunID, res.Summary)
	})
	if err != nil {
		return nil, err
	}
	logf("saved run %s for %s (%d frames)", run.RunID, run.File, run.Frames)
	return run, nil
}

// InsertRun persists a run header. If RunID is empty, a UUID is generated;
// if CreatedAt is zero, the store clock is used.
func (s *RunStore) InsertRun(ctx context.Context, run *Run) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertRun(ctx, tx, s.stamp(run))
	})
}

// InsertTrajectory persists the per-frame rows of a run.
func (s *RunStore) InsertTrajectory(ctx context.Context, runID string, rows []l4tracks.Row) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertTrajectory(ctx, tx, runID, rows)
	})
}

// InsertCrossings persists a run's crossing events in order.
func (s *RunStore) InsertCrossings(ctx context.Context, runID string, crossings []l5regions.Crossing) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertCrossings(ctx, tx, runID, crossings)
	})
}

// InsertSummary persists a run's bin summary rows in order.
func (s *RunStore) InsertSummary(ctx context.Context, runID string, rows []l6summary.Row) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertSummary(ctx, tx, runID, rows)
	})
}

const runColumns = `run_id, file, fps, start_frame, frames, undefined_frames,
	total_distance_px, pairing, crossings, mismatch_from, mismatch_to,
	params_json, elapsed_ms, created_at`

// GetRun returns a single run header by ID.
func (s *RunStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM arena_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+`
		FROM arena_runs
		ORDER BY created_at DESC, run_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and, through the cascade, its rows.
func (s *RunStore) DeleteRun(ctx context.Context, runID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM arena_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// LoadTrajectory rebuilds the trajectory of a stored run. Undefined
// positions and distances come back as NaN.
func (s *RunStore) LoadTrajectory(ctx context.Context, runID string) (*l4tracks.Trajectory, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	traj := &l4tracks.Trajectory{Meta: l4tracks.RunMeta{
		File:       run.File,
		FPS:        run.FPS,
		StartFrame: run.StartFrame,
	}}
	if len(run.ParamsJSON) > 0 {
		var p l3locate.Params
		if err := json.Unmarshal(run.ParamsJSON, &p); err != nil {
			return nil, fmt.Errorf("decode params for run %s: %w", runID, err)
		}
		traj.Meta.Params = p
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT frame, x, y, distance_px
		FROM arena_trajectory
		WHERE run_id = ?
		ORDER BY frame`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trajectory: %w", err)
	}
	defer rows.Close()

	traj.Rows = make([]l4tracks.Row, 0, run.Frames)
	for rows.Next() {
		var r l4tracks.Row
		var x, y, d sql.NullFloat64
		if err := rows.Scan(&r.Frame, &x, &y, &d); err != nil {
			return nil, fmt.Errorf("scan trajectory row: %w", err)
		}
		r.X, r.Y, r.DistancePx = fromNull(x), fromNull(y), fromNull(d)
		traj.Rows = append(traj.Rows, r)
	}
	return traj, rows.Err()
}

// LoadCrossings returns a run's crossings in detection order.
func (s *RunStore) LoadCrossings(ctx context.Context, runID string) ([]l5regions.Crossing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT region_from, region_to, frame_from, frame_to
		FROM arena_crossings
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query crossings: %w", err)
	}
	defer rows.Close()

	var out []l5regions.Crossing
	for rows.Next() {
		var c l5regions.Crossing
		if err := rows.Scan(&c.RegionFrom, &c.RegionTo, &c.FrameFrom, &c.FrameTo); err != nil {
			return nil, fmt.Errorf("scan crossing row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LoadSummary returns a run's bin summary rows in bin order.
func (s *RunStore) LoadSummary(ctx context.Context, runID string) ([]l6summary.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT label, bin_start, bin_end, frames, distance_px, cross_region,
		       occupancy_json, range_min_start, range_min_end
		FROM arena_bin_summaries
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var out []l6summary.Row
	for rows.Next() {
		var r l6summary.Row
		var occ sql.NullString
		var lo, hi sql.NullFloat64
		if err := rows.Scan(&r.Bin.Label, &r.Bin.Start, &r.Bin.End, &r.Frames, &r.DistancePx,
			&r.CrossRegion, &occ, &lo, &hi); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		if occ.Valid {
			r.Occupancy, err = decodeOccupancy(occ.String)
			if err != nil {
				return nil, err
			}
		}
		if lo.Valid && hi.Valid {
			r.RangeMinutes = &[2]float64{lo.Float64, hi.Float64}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *RunStore) stamp(run *Run) *Run {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = s.clock.Now().UnixNano()
	}
	return run
}

func (s *RunStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertRun(ctx context.Context, tx *sql.Tx, run *Run) error {
	var mFrom, mTo sql.NullInt64
	if run.Mismatch != nil {
		mFrom = sql.NullInt64{Int64: int64(run.Mismatch.From), Valid: true}
		mTo = sql.NullInt64{Int64: int64(run.Mismatch.To), Valid: true}
	}
	var params interface{}
	if len(run.ParamsJSON) > 0 {
		params = string(run.ParamsJSON)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO arena_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.File, run.FPS, run.StartFrame, run.Frames, run.UndefinedFrames,
		nullFloat(run.TotalDistancePx), run.Pairing, run.Crossings, mFrom, mTo,
		params, run.ElapsedMs, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func insertTrajectory(ctx context.Context, tx *sql.Tx, runID string, rows []l4tracks.Row) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO arena_trajectory (run_id, frame, x, y, distance_px)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare trajectory insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, runID, r.Frame, nullFloat(r.X), nullFloat(r.Y), nullFloat(r.DistancePx)); err != nil {
			return fmt.Errorf("insert frame %d: %w", r.Frame, err)
		}
	}
	return nil
}

func insertCrossings(ctx context.Context, tx *sql.Tx, runID string, crossings []l5regions.Crossing) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO arena_crossings (run_id, seq, region_from, region_to, frame_from, frame_to)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare crossing insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range crossings {
		if _, err := stmt.ExecContext(ctx, runID, i, c.RegionFrom, c.RegionTo, c.FrameFrom, c.FrameTo); err != nil {
			return fmt.Errorf("insert crossing %d: %w", i, err)
		}
	}
	return nil
}

func insertSummary(ctx context.Context, tx *sql.Tx, runID string, rows []l6summary.Row) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO arena_bin_summaries (
			run_id, seq, label, bin_start, bin_end, frames, distance_px,
			cross_region, occupancy_json, range_min_start, range_min_end
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare summary insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		occ, err := encodeOccupancy(r.Occupancy)
		if err != nil {
			return err
		}
		var lo, hi sql.NullFloat64
		if r.RangeMinutes != nil {
			lo, hi = nullFloat(r.RangeMinutes[0]), nullFloat(r.RangeMinutes[1])
		}
		if _, err := stmt.ExecContext(ctx, runID, i, r.Bin.Label, r.Bin.Start, r.Bin.End,
			r.Frames, r.DistancePx, r.CrossRegion, occ, lo, hi); err != nil {
			return fmt.Errorf("insert bin %q: %w", r.Bin.Label, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var total sql.NullFloat64
	var mFrom, mTo sql.NullInt64
	var params sql.NullString
	err := row.Scan(
		&run.RunID, &run.File, &run.FPS, &run.StartFrame, &run.Frames, &run.UndefinedFrames,
		&total, &run.Pairing, &run.Crossings, &mFrom, &mTo,
		&params, &run.ElapsedMs, &run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.TotalDistancePx = total.Float64
	if mFrom.Valid && mTo.Valid {
		run.Mismatch = &l5regions.Mismatch{From: int(mFrom.Int64), To: int(mTo.Int64)}
	}
	if params.Valid {
		run.ParamsJSON = json.RawMessage(params.String)
	}
	return &run, nil
}

// SQLite stores NaN as NULL; make that explicit in both directions.
func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// Occupancy fractions are NaN for empty bins, which JSON cannot carry.
func encodeOccupancy(occ map[string]float64) (interface{}, error) {
	if occ == nil {
		return nil, nil
	}
	m := make(map[string]*float64, len(occ))
	for k, v := range occ {
		if math.IsNaN(v) {
			m[k] = nil
			continue
		}
		v := v
		m[k] = &v
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal occupancy: %w", err)
	}
	return string(b), nil
}

func decodeOccupancy(s string) (map[string]float64, error) {
	var m map[string]*float64
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("decode occupancy: %w", err)
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if v == nil {
			out[k] = math.NaN()
			continue
		}
		out[k] = *v
	}
	return out, nil
}
