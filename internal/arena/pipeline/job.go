package pipeline

import (
	"fmt"
	"math/rand/v2"

	"github.com/banshee-data/arena.tracker/internal/arena/l1frames"
	"github.com/banshee-data/arena.tracker/internal/arena/l3locate"
	"github.com/banshee-data/arena.tracker/internal/arena/l5regions"
	"github.com/banshee-data/arena.tracker/internal/arena/l6summary"
	"github.com/banshee-data/arena.tracker/internal/config"
	"github.com/banshee-data/arena.tracker/internal/units"
)

// SourceOpener opens a seekable frame source for a video file.
type SourceOpener func(path string) (l1frames.SeekSource, error)

// Job is the validated, immutable description of one run.
type Job struct {
	File   string
	Params l3locate.Params
	Crop   l1frames.Crop

	ReferenceFile        string // Alternate video of the same scene; empty uses File
	ReferenceFrames      int
	ReferenceMaxAttempts int
	Rand                 *rand.Rand // Optional, for reproducible references

	StartFrame int
	EndFrame   int     // Exclusive; 0 runs to the end of the video
	FPS        float64 // 0 uses the source's rate

	Regions []l5regions.Region
	Bins    l6summary.Spec
	Pairing l5regions.PairingMode
	Scale   units.Scale // Zero value disables scaling
}

// JobFromConfig builds a Job for file from a validated config.
func JobFromConfig(cfg *config.TrackingConfig, file string) (Job, error) {
	if err := cfg.Validate(); err != nil {
		return Job{}, err
	}
	pairing, err := l5regions.ParsePairingMode(cfg.GetPairing())
	if err != nil {
		return Job{}, err
	}
	end, _ := cfg.GetEndFrame()
	return Job{
		File:                 file,
		Params:               cfg.Params(),
		Crop:                 cfg.GetCrop(),
		ReferenceFile:        cfg.GetReferenceFile(),
		ReferenceFrames:      cfg.GetReferenceFrames(),
		ReferenceMaxAttempts: cfg.GetReferenceMaxAttempts(),
		StartFrame:           cfg.GetStartFrame(),
		EndFrame:             end,
		FPS:                  cfg.GetFPS(),
		Regions:              cfg.Regions,
		Bins:                 cfg.BinSpec(),
		Pairing:              pairing,
		Scale:                cfg.GetScale(),
	}, nil
}

// referenceFile is the video the background is sampled from.
func (j Job) referenceFile() string {
	if j.ReferenceFile != "" {
		return j.ReferenceFile
	}
	return j.File
}

// Validate checks everything that can be checked before a frame is read.
func (j Job) Validate() error {
	if err := j.Params.Validate(); err != nil {
		return err
	}
	if j.StartFrame < 0 {
		return fmt.Errorf("start frame must be non-negative, got %d", j.StartFrame)
	}
	if j.EndFrame != 0 && j.EndFrame <= j.StartFrame {
		return fmt.Errorf("end frame %d must be after start frame %d", j.EndFrame, j.StartFrame)
	}
	for _, r := range j.Regions {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	if err := j.Bins.Validate(); err != nil {
		return err
	}
	if _, err := l5regions.ParsePairingMode(string(j.Pairing)); err != nil {
		return err
	}
	if !j.Scale.IsZero() {
		if err := j.Scale.Validate(); err != nil {
			return err
		}
	}
	return nil
}
