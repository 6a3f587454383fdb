package l1frames

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is returned when a frame and the reference image do
// not share the same (rows, cols) shape after cropping.
var ErrDimensionMismatch = errors.New("frame and reference dimensions differ")

// Source is a sequential pull interface over decoded grayscale frames.
// Next returns ok=false at end of stream or on a decode failure; the two are
// deliberately not distinguished at this layer.
type Source interface {
	Next() (frame *mat.Dense, ok bool)
	Close() error
}

// SeekSource is a Source that can be repositioned. The background model
// needs random access; the tracker only needs Next.
type SeekSource interface {
	Source
	// Seek positions the source so the following Next returns frame index f.
	Seek(f int) error
	// FrameCount reports the number of frames, or 0 if unknown.
	FrameCount() int
	// FPS reports the nominal frame rate, or 0 if unknown.
	FPS() float64
}

// CheckShape returns ErrDimensionMismatch (wrapped with both shapes) unless
// a and b have identical dimensions.
func CheckShape(a, b *mat.Dense) error {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return fmt.Errorf("%w: frame %dx%d, reference %dx%d", ErrDimensionMismatch, ar, ac, br, bc)
	}
	return nil
}

// FromGray copies an 8-bit grayscale image into a dense matrix indexed
// (row, col) = (y, x).
func FromGray(img *image.Gray) *mat.Dense {
	b := img.Bounds()
	h, w := b.Dy(), b.Dx()
	data := make([]float64, h*w)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x, v := range row {
			data[y*w+x] = float64(v)
		}
	}
	return mat.NewDense(h, w, data)
}

// FromImage converts any image to grayscale using the color.GrayModel
// luma weights and returns it as a dense matrix.
func FromImage(img image.Image) *mat.Dense {
	if g, ok := img.(*image.Gray); ok {
		return FromGray(g)
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.SetGray(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
		}
	}
	return FromGray(gray)
}

// ToGray renders a matrix as an 8-bit image, rounding and clamping each
// value to [0, 255].
func ToGray(m *mat.Dense) *image.Gray {
	r, c := m.Dims()
	img := image.NewGray(image.Rect(0, 0, c, r))
	for y := 0; y < r; y++ {
		for x := 0; x < c; x++ {
			v := math.Round(m.At(y, x))
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			img.Pix[y*img.Stride+x] = uint8(v)
		}
	}
	return img
}

// FromBytes builds a frame from a row-major 8-bit grayscale buffer.
func FromBytes(rows, cols int, pix []byte) (*mat.Dense, error) {
	if rows <= 0 || cols <= 0 || len(pix) < rows*cols {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d frame", ErrDimensionMismatch, len(pix), rows, cols)
	}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = float64(pix[i])
	}
	return mat.NewDense(rows, cols, data), nil
}
