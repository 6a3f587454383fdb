package render

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/banshee-data/arena.tracker/internal/arena/l4tracks"
	"github.com/banshee-data/arena.tracker/internal/arena/l5regions"
	"github.com/banshee-data/arena.tracker/internal/arena/l6summary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func sampleTrajectory() *l4tracks.Trajectory {
	traj := &l4tracks.Trajectory{Meta: l4tracks.RunMeta{File: "walk.avi"}}
	for i := range 20 {
		traj.Rows = append(traj.Rows, l4tracks.Row{Frame: i, X: float64(i) + 0.5, Y: 5.5})
	}
	traj.Rows[7].X, traj.Rows[7].Y = math.NaN(), math.NaN()
	return traj
}

func TestTracePNG(t *testing.T) {
	t.Parallel()
	ref := mat.NewDense(12, 24, nil)
	regions := []l5regions.Region{
		{Name: "nest", Vertices: []l5regions.Vertex{{X: 0, Y: 0}, {X: 6, Y: 0}, {X: 6, Y: 6}}},
	}
	var buf bytes.Buffer
	require.NoError(t, TracePNG(&buf, ref, sampleTrajectory(), regions, 4*vg.Inch, 2*vg.Inch))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestHeatmapGrid(t *testing.T) {
	t.Parallel()
	traj := sampleTrajectory()
	traj.Rows = append(traj.Rows,
		l4tracks.Row{Frame: 20, X: 3.2, Y: 5.9},
		l4tracks.Row{Frame: 21, X: 99, Y: 1},
	)

	grid := HeatmapGrid(traj, 24, 12, -1)
	assert.Equal(t, 255.0, grid.At(5, 3))
	assert.Equal(t, 127.5, grid.At(5, 4))
	assert.Equal(t, 0.0, grid.At(5, 7))
	assert.Equal(t, 0.0, grid.At(0, 0))

	blurred := HeatmapGrid(traj, 24, 12, 1.5)
	assert.InDelta(t, 255, floats.Max(blurred.RawMatrix().Data), 1e-9)
	assert.Greater(t, blurred.At(4, 3), 0.0)

	empty := HeatmapGrid(&l4tracks.Trajectory{}, 5, 5, 1)
	assert.Equal(t, 0.0, floats.Max(empty.RawMatrix().Data))
}

func TestHeatmapGridDefaultSigma(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 15.0, DefaultHeatmapSigma(200, 400), 1e-12)

	traj := &l4tracks.Trajectory{Rows: []l4tracks.Row{{Frame: 0, X: 20.5, Y: 20.5}}}
	implicit := HeatmapGrid(traj, 40, 40, 0)
	explicit := HeatmapGrid(traj, 40, 40, DefaultHeatmapSigma(40, 40))
	assert.True(t, mat.EqualApprox(implicit, explicit, 1e-9))

	// The single visit spreads over its neighbourhood with the peak on it.
	assert.InDelta(t, 255, implicit.At(20, 20), 1e-9)
	assert.Greater(t, implicit.At(20, 22), 0.0)
	assert.Less(t, implicit.At(20, 22), implicit.At(20, 21))
	assert.InDelta(t, implicit.At(18, 20), implicit.At(22, 20), 1e-9)
}

func TestHeatmapGridReflectsAtBorder(t *testing.T) {
	t.Parallel()
	traj := &l4tracks.Trajectory{Rows: []l4tracks.Row{{Frame: 0, X: 0.5, Y: 0.5}}}
	grid := HeatmapGrid(traj, 16, 16, 1)

	// A corner visit keeps its peak on the corner pixel under reflection.
	assert.InDelta(t, 255, grid.At(0, 0), 1e-9)
	assert.Greater(t, grid.At(0, 1), 0.0)
	assert.InDelta(t, grid.At(0, 1), grid.At(1, 0), 1e-9)
	assert.Equal(t, 0.0, grid.At(15, 15))
}

func TestHeatmapPNG(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, HeatmapPNG(&buf, HeatmapGrid(sampleTrajectory(), 24, 12, 1), "walk", 3*vg.Inch, 2*vg.Inch))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))

	buf.Reset()
	require.NoError(t, HeatmapPNG(&buf, mat.NewDense(4, 4, nil), "flat", 2*vg.Inch, 2*vg.Inch))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestBinChartHTML(t *testing.T) {
	t.Parallel()
	rows := []l6summary.Row{
		{Bin: l6summary.Bin{Label: "1"}, DistancePx: 120.5, Occupancy: map[string]float64{"nest": 0.25}, CrossRegion: 2},
		{Bin: l6summary.Bin{Label: "2"}, DistancePx: 80, Occupancy: map[string]float64{"nest": math.NaN()}},
	}
	var buf bytes.Buffer
	require.NoError(t, BinChartHTML(&buf, "walk.avi", rows, []string{"nest"}))
	html := buf.String()
	assert.True(t, strings.Contains(html, "Distance per bin"))
	assert.True(t, strings.Contains(html, "Occupancy per bin"))
	assert.True(t, strings.Contains(html, "nest"))
}
