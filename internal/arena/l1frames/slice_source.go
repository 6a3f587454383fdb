package l1frames

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SliceSource serves frames from memory. It backs tests and any caller that
// already holds decoded frames. FailAt, when >= 0, makes every read of that
// index and beyond fail, emulating a truncated or corrupt video.
type SliceSource struct {
	Frames []*mat.Dense
	Rate   float64
	FailAt int

	pos    int
	reads  int
	closed bool
}

// NewSliceSource returns a source over frames that never fails early.
func NewSliceSource(fps float64, frames ...*mat.Dense) *SliceSource {
	return &SliceSource{Frames: frames, Rate: fps, FailAt: -1}
}

// Next returns the frame at the current position and advances.
func (s *SliceSource) Next() (*mat.Dense, bool) {
	if s.closed || s.pos >= len(s.Frames) {
		return nil, false
	}
	if s.FailAt >= 0 && s.pos >= s.FailAt {
		s.pos++
		return nil, false
	}
	f := s.Frames[s.pos]
	s.pos++
	s.reads++
	return mat.DenseCopyOf(f), true
}

// Seek repositions the source.
func (s *SliceSource) Seek(f int) error {
	if f < 0 || f > len(s.Frames) {
		return fmt.Errorf("seek to frame %d out of range [0,%d]", f, len(s.Frames))
	}
	s.pos = f
	return nil
}

// FrameCount returns the number of frames held.
func (s *SliceSource) FrameCount() int { return len(s.Frames) }

// FPS returns the configured frame rate.
func (s *SliceSource) FPS() float64 { return s.Rate }

// Close marks the source closed; further reads fail.
func (s *SliceSource) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *SliceSource) Closed() bool { return s.closed }

// Reads reports how many frames were successfully returned.
func (s *SliceSource) Reads() int { return s.reads }
