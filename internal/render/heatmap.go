package render

import (
	"image"
	"io"
	"math"

	"github.com/banshee-data/arena.tracker/internal/arena/l4tracks"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// DefaultHeatmapSigma is the blur width used when HeatmapGrid is given a
// zero sigma: 5% of the mean arena side.
func DefaultHeatmapSigma(width, height int) float64 {
	return 0.05 * float64(width+height) / 2
}

// HeatmapGrid counts frames per pixel of a width x height arena, blurs the
// counts with a gaussian of the given sigma and scales the result so its
// peak is 255. A zero sigma uses DefaultHeatmapSigma; a negative sigma
// leaves the counts unblurred. Undefined and out-of-frame positions are
// skipped.
func HeatmapGrid(traj *l4tracks.Trajectory, width, height int, sigma float64) *mat.Dense {
	grid := mat.NewDense(height, width, nil)
	for _, r := range traj.Rows {
		if math.IsNaN(r.X) || math.IsNaN(r.Y) {
			continue
		}
		x, y := int(math.Floor(r.X)), int(math.Floor(r.Y))
		if x < 0 || y < 0 || x >= width || y >= height {
			continue
		}
		grid.Set(y, x, grid.At(y, x)+1)
	}
	if sigma == 0 {
		sigma = DefaultHeatmapSigma(width, height)
	}
	if sigma > 0 {
		grid = blur(grid, sigma)
	}

	data := grid.RawMatrix().Data
	if peak := floats.Max(data); peak > 0 {
		floats.Scale(255/peak, data)
	}
	return grid
}

// blur runs an OpenCV gaussian over m with the kernel size derived from
// sigma and reflected borders.
func blur(m *mat.Dense, sigma float64) *mat.Dense {
	rows, cols := m.Dims()
	src := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV64F)
	defer src.Close()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			src.SetDoubleAt(r, c, m.At(r, c))
		}
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.GaussianBlur(src, &dst, image.Point{}, sigma, sigma, gocv.BorderReflect101)

	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.Set(r, c, dst.GetDoubleAt(r, c))
		}
	}
	return out
}

// gridXYZ adapts a matrix to plotter.GridXYZ with row 0 drawn at the top.
type gridXYZ struct{ m *mat.Dense }

func (g gridXYZ) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g gridXYZ) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}

func (g gridXYZ) X(c int) float64 { return float64(c) }
func (g gridXYZ) Y(r int) float64 { return float64(r) }

// HeatmapPNG renders a grid from HeatmapGrid as a PNG of size w x h.
func HeatmapPNG(out io.Writer, grid *mat.Dense, title string, w, h vg.Length) error {
	hm := plotter.NewHeatMap(gridXYZ{m: grid}, palette.Heat(64, 1))
	if hm.Max <= hm.Min {
		hm.Max = hm.Min + 1
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (px)"
	p.Y.Label.Text = "Y (px)"
	p.Add(hm)

	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(out)
	return err
}
