package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/banshee-data/arena.tracker/internal/arena/l1frames"
	"github.com/banshee-data/arena.tracker/internal/arena/l4tracks"
	"github.com/banshee-data/arena.tracker/internal/arena/l5regions"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// flipY converts an image row to a plot Y so that row 0 is at the top.
func flipY(y float64, height int) float64 { return float64(height) - y }

// TracePNG draws the trajectory as a line over the reference image with
// each region's outline, and writes a PNG of size w x h.
func TracePNG(out io.Writer, reference *mat.Dense, traj *l4tracks.Trajectory, regions []l5regions.Region, w, h vg.Length) error {
	rows, cols := reference.Dims()

	p := plot.New()
	p.Title.Text = "Trajectory"
	if traj.Meta.File != "" {
		p.Title.Text = fmt.Sprintf("Trajectory - %s", traj.Meta.File)
	}
	p.X.Label.Text = "X (px)"
	p.Y.Label.Text = "Y (px)"
	p.X.Min, p.X.Max = 0, float64(cols)
	p.Y.Min, p.Y.Max = 0, float64(rows)

	p.Add(plotter.NewImage(l1frames.ToGray(reference), 0, 0, float64(cols), float64(rows)))

	colors := regionColors(len(regions))
	for i, r := range regions {
		pts := make(plotter.XYs, 0, len(r.Vertices)+1)
		for _, v := range r.Vertices {
			pts = append(pts, plotter.XY{X: v.X, Y: flipY(v.Y, rows)})
		}
		pts = append(pts, pts[0])
		outline, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("region %q: %w", r.Name, err)
		}
		outline.Color = colors[i]
		outline.Width = vg.Points(2)
		p.Add(outline)
		p.Legend.Add(r.Name, outline)
	}

	// Undefined positions break the line into segments.
	var segment plotter.XYs
	flush := func() error {
		if len(segment) == 0 {
			return nil
		}
		line, err := plotter.NewLine(segment)
		if err != nil {
			return err
		}
		line.Color = color.RGBA{R: 255, G: 40, B: 40, A: 255}
		line.Width = vg.Points(1)
		p.Add(line)
		segment = nil
		return nil
	}
	for _, r := range traj.Rows {
		if math.IsNaN(r.X) || math.IsNaN(r.Y) {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		segment = append(segment, plotter.XY{X: r.X, Y: flipY(r.Y, rows)})
	}
	if err := flush(); err != nil {
		return err
	}

	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(out)
	return err
}

// regionColors spreads n colours evenly around the hue circle.
func regionColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64
	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
