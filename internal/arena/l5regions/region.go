package l5regions

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/vector"
)

// ErrInvalidRegion is wrapped by every region definition failure.
var ErrInvalidRegion = errors.New("invalid region")

// Vertex is a polygon corner in cropped-frame pixel coordinates.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Region is a named closed polygon. The last vertex joins the first.
type Region struct {
	Name     string   `json:"name"`
	Vertices []Vertex `json:"vertices"`
}

// Validate checks the region has a name and at least three vertices.
func (r Region) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidRegion)
	}
	if len(r.Vertices) < 3 {
		return fmt.Errorf("%w: %q has %d vertices, need at least 3", ErrInvalidRegion, r.Name, len(r.Vertices))
	}
	return nil
}

// Mask is a W x H boolean raster of a region, row-major.
type Mask struct {
	Name   string
	Width  int
	Height int
	Pix    []bool
}

// maskCoverage is the minimum anti-aliased coverage (out of 255) for a
// pixel to count as inside.
const maskCoverage = 128

// NewMask rasterizes r onto a width x height grid. A pixel is inside when
// the polygon covers at least half of it.
func NewMask(r Region, width, height int) (*Mask, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %q mask size %dx%d", ErrInvalidRegion, r.Name, width, height)
	}

	z := vector.NewRasterizer(width, height)
	z.MoveTo(float32(r.Vertices[0].X), float32(r.Vertices[0].Y))
	for _, v := range r.Vertices[1:] {
		z.LineTo(float32(v.X), float32(v.Y))
	}
	z.ClosePath()

	alpha := image.NewAlpha(image.Rect(0, 0, width, height))
	z.Draw(alpha, alpha.Bounds(), image.Opaque, image.Point{})

	m := &Mask{Name: r.Name, Width: width, Height: height, Pix: make([]bool, width*height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m.Pix[y*width+x] = alpha.AlphaAt(x, y).A >= maskCoverage
		}
	}
	return m, nil
}

// Contains reports whether integer pixel (x, y) is inside. Out-of-grid
// pixels are outside.
func (m *Mask) Contains(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Area returns the number of inside pixels.
func (m *Mask) Area() int {
	n := 0
	for _, in := range m.Pix {
		if in {
			n++
		}
	}
	return n
}

// Image renders the mask as an 8-bit alpha image, for overlays.
func (m *Mask) Image() *image.Alpha {
	img := image.NewAlpha(image.Rect(0, 0, m.Width, m.Height))
	for i, in := range m.Pix {
		if in {
			img.Pix[i] = 0xff
		}
	}
	return img
}
