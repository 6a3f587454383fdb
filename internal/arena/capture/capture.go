// Package capture decodes video files into grayscale frames with OpenCV.
package capture

import (
	"fmt"

	"github.com/banshee-data/arena.tracker/internal/arena/l1frames"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// VideoSource is a seekable grayscale frame source over a video file.
type VideoSource struct {
	path  string
	vc    *gocv.VideoCapture
	bgr   gocv.Mat
	gray  gocv.Mat
	count int
	fps   float64
}

var _ l1frames.SeekSource = (*VideoSource)(nil)

// Open opens path for decoding.
func Open(path string) (l1frames.SeekSource, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open video %s: capture not opened", path)
	}
	return &VideoSource{
		path:  path,
		vc:    vc,
		bgr:   gocv.NewMat(),
		gray:  gocv.NewMat(),
		count: int(vc.Get(gocv.VideoCaptureFrameCount)),
		fps:   vc.Get(gocv.VideoCaptureFPS),
	}, nil
}

// Next decodes the next frame. A decode failure or the end of the file
// both report ok=false.
func (s *VideoSource) Next() (*mat.Dense, bool) {
	if ok := s.vc.Read(&s.bgr); !ok || s.bgr.Empty() {
		return nil, false
	}
	switch s.bgr.Channels() {
	case 1:
		s.bgr.CopyTo(&s.gray)
	case 4:
		gocv.CvtColor(s.bgr, &s.gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(s.bgr, &s.gray, gocv.ColorBGRToGray)
	}
	frame, err := l1frames.FromBytes(s.gray.Rows(), s.gray.Cols(), s.gray.ToBytes())
	if err != nil {
		return nil, false
	}
	return frame, true
}

// Seek positions the decoder so the next read returns frame f.
func (s *VideoSource) Seek(f int) error {
	if f < 0 || (s.count > 0 && f >= s.count) {
		return fmt.Errorf("seek %s: frame %d out of range [0,%d)", s.path, f, s.count)
	}
	s.vc.Set(gocv.VideoCapturePosFrames, float64(f))
	return nil
}

// FrameCount returns the container's frame count; it may be an estimate.
func (s *VideoSource) FrameCount() int { return s.count }

// FPS returns the container's frame rate.
func (s *VideoSource) FPS() float64 { return s.fps }

// Close releases the decoder and scratch buffers.
func (s *VideoSource) Close() error {
	s.bgr.Close()
	s.gray.Close()
	return s.vc.Close()
}
