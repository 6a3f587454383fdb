package l1frames

import "gonum.org/v1/gonum/mat"

// Crop is an axis-aligned crop box in frame pixel coordinates. Corner order
// does not matter; the zero value means "no crop".
type Crop struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

// IsZero reports whether the crop box is unset.
func (c Crop) IsZero() bool {
	return c == Crop{}
}

// bounds returns the normalised half-open [ymin,ymax) x [xmin,xmax) box.
func (c Crop) bounds() (ymin, ymax, xmin, xmax int) {
	xmin, xmax = c.X0, c.X1
	if xmin > xmax {
		xmin, xmax = xmax, xmin
	}
	ymin, ymax = c.Y0, c.Y1
	if ymin > ymax {
		ymin, ymax = ymax, ymin
	}
	return ymin, ymax, xmin, xmax
}

// Apply returns a copy of the cropped region of frame. A zero, empty or
// out-of-range box leaves the frame as is, so the same Crop can be applied
// blindly to every frame and to the reference.
func (c Crop) Apply(frame *mat.Dense) *mat.Dense {
	if c.IsZero() {
		return frame
	}
	rows, cols := frame.Dims()
	ymin, ymax, xmin, xmax := c.bounds()
	if ymin < 0 || xmin < 0 || ymax > rows || xmax > cols || ymin >= ymax || xmin >= xmax {
		return frame
	}
	return mat.DenseCopyOf(frame.Slice(ymin, ymax, xmin, xmax))
}
