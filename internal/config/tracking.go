package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/arena.tracker/internal/arena/l1frames"
	"github.com/banshee-data/arena.tracker/internal/arena/l2background"
	"github.com/banshee-data/arena.tracker/internal/arena/l3locate"
	"github.com/banshee-data/arena.tracker/internal/arena/l5regions"
	"github.com/banshee-data/arena.tracker/internal/arena/l6summary"
	"github.com/banshee-data/arena.tracker/internal/fsutil"
	"github.com/banshee-data/arena.tracker/internal/units"
)

// DefaultConfigPath is the path to the canonical tracking defaults file.
// This is the single source of truth for all default tracking values.
const DefaultConfigPath = "config/tracking.defaults.json"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// TrackingConfig is the run configuration for one video or a batch. Every
// scalar is a pointer so a partial file keeps the defaults for anything it
// omits; use the Get* methods to read values.
type TrackingConfig struct {
	// Localization params
	LocThresh    *float64 `json:"loc_thresh,omitempty"`
	UseWindow    *bool    `json:"use_window,omitempty"`
	WindowSize   *int     `json:"window_size,omitempty"`
	WindowWeight *float64 `json:"window_weight,omitempty"`
	Method       *string  `json:"method,omitempty"` // abs, light or dark

	// Reference image params
	ReferenceFile        *string `json:"reference_file,omitempty"` // alternate video of the same empty arena
	ReferenceFrames      *int    `json:"reference_frames,omitempty"`
	ReferenceMaxAttempts *int    `json:"reference_max_attempts,omitempty"`

	// Segment of the video to track
	StartFrame *int     `json:"start_frame,omitempty"`
	EndFrame   *int     `json:"end_frame,omitempty"` // nil tracks to the end of the video
	FPS        *float64 `json:"fps,omitempty"`       // 0 or nil uses the video's rate

	Crop    *l1frames.Crop     `json:"crop,omitempty"`
	Regions []l5regions.Region `json:"regions,omitempty"`

	// Summary params
	Bins      []l6summary.Bin `json:"bins,omitempty"`
	TimeBin   *bool           `json:"time_bin,omitempty"` // bin boundaries are minutes
	NBinsMode *string         `json:"n_bins_mode,omitempty"`
	Pairing   *string         `json:"pairing,omitempty"` // rank or nearest

	Scale *units.Scale `json:"scale,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTrackingConfig returns a TrackingConfig with all fields set to nil.
// Use LoadTrackingConfig to load actual values from a file.
func EmptyTrackingConfig() *TrackingConfig {
	return &TrackingConfig{}
}

// DefaultTrackingConfig returns a TrackingConfig with every scalar set to
// its default.
func DefaultTrackingConfig() *TrackingConfig {
	return &TrackingConfig{
		LocThresh:            ptrFloat64(99.5),
		UseWindow:            ptrBool(true),
		WindowSize:           ptrInt(100),
		WindowWeight:         ptrFloat64(0.9),
		Method:               ptrString(string(l3locate.MethodAbs)),
		ReferenceFrames:      ptrInt(l2background.DefaultNumFrames),
		ReferenceMaxAttempts: ptrInt(1000),
		StartFrame:           ptrInt(0),
		FPS:                  ptrFloat64(0),
		TimeBin:              ptrBool(false),
		NBinsMode:            ptrString(string(l6summary.BinFixed)),
		Pairing:              ptrString(string(l5regions.PairRankOrder)),
	}
}

// LoadTrackingConfig loads a TrackingConfig from a JSON file on disk.
// See LoadTrackingConfigFS.
func LoadTrackingConfig(path string) (*TrackingConfig, error) {
	return LoadTrackingConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadTrackingConfigFS loads a TrackingConfig from a JSON file in fsys.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTrackingConfigFS(fsys fsutil.FileSystem, path string) (*TrackingConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTrackingConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tracking defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TrackingConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/arena/pipeline/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	fsys := fsutil.OSFileSystem{}
	for _, path := range candidates {
		if !fsys.Exists(path) {
			continue
		}
		if cfg, err := LoadTrackingConfigFS(fsys, path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. Every failure
// wraps ErrInvalidConfig.
func (c *TrackingConfig) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.GetReferenceFrames() <= 0 {
		return fmt.Errorf("%w: reference_frames must be positive, got %d", ErrInvalidConfig, c.GetReferenceFrames())
	}
	if c.GetReferenceMaxAttempts() < c.GetReferenceFrames() {
		return fmt.Errorf("%w: reference_max_attempts (%d) must be at least reference_frames (%d)",
			ErrInvalidConfig, c.GetReferenceMaxAttempts(), c.GetReferenceFrames())
	}

	if c.GetStartFrame() < 0 {
		return fmt.Errorf("%w: start_frame must be non-negative, got %d", ErrInvalidConfig, c.GetStartFrame())
	}
	if end, ok := c.GetEndFrame(); ok && end <= c.GetStartFrame() {
		return fmt.Errorf("%w: end_frame (%d) must be after start_frame (%d)", ErrInvalidConfig, end, c.GetStartFrame())
	}
	if c.GetFPS() < 0 {
		return fmt.Errorf("%w: fps must be non-negative, got %f", ErrInvalidConfig, c.GetFPS())
	}

	seen := make(map[string]bool, len(c.Regions))
	for _, r := range c.Regions {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate region name %q", ErrInvalidConfig, r.Name)
		}
		seen[r.Name] = true
	}

	if err := c.BinSpec().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := l5regions.ParsePairingMode(c.GetPairing()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Scale != nil {
		if err := c.Scale.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Params returns the localization params.
func (c *TrackingConfig) Params() l3locate.Params {
	return l3locate.Params{
		LocThresh:    c.GetLocThresh(),
		UseWindow:    c.GetUseWindow(),
		WindowSize:   c.GetWindowSize(),
		WindowWeight: c.GetWindowWeight(),
		Method:       l3locate.Method(c.GetMethod()),
	}
}

// BinSpec returns the summary bin specification.
func (c *TrackingConfig) BinSpec() l6summary.Spec {
	return l6summary.Spec{
		Bins:    c.Bins,
		TimeBin: c.GetTimeBin(),
		Mode:    l6summary.BinMode(c.GetNBinsMode()),
	}
}

// GetLocThresh returns the loc_thresh value or the default.
func (c *TrackingConfig) GetLocThresh() float64 {
	if c.LocThresh == nil {
		return 99.5 // default
	}
	return *c.LocThresh
}

// GetUseWindow returns the use_window value or the default.
func (c *TrackingConfig) GetUseWindow() bool {
	if c.UseWindow == nil {
		return true // default
	}
	return *c.UseWindow
}

// GetWindowSize returns the window_size value or the default.
func (c *TrackingConfig) GetWindowSize() int {
	if c.WindowSize == nil {
		return 100 // default
	}
	return *c.WindowSize
}

// GetWindowWeight returns the window_weight value or the default.
func (c *TrackingConfig) GetWindowWeight() float64 {
	if c.WindowWeight == nil {
		return 0.9 // default
	}
	return *c.WindowWeight
}

// GetMethod returns the method value or the default.
func (c *TrackingConfig) GetMethod() string {
	if c.Method == nil || *c.Method == "" {
		return string(l3locate.MethodAbs) // default
	}
	return *c.Method
}

// GetReferenceFile returns the alternate reference video, or "" to sample
// the tracked video itself.
func (c *TrackingConfig) GetReferenceFile() string {
	if c.ReferenceFile == nil {
		return ""
	}
	return *c.ReferenceFile
}

// GetReferenceFrames returns the reference_frames value or the default.
func (c *TrackingConfig) GetReferenceFrames() int {
	if c.ReferenceFrames == nil {
		return l2background.DefaultNumFrames // default
	}
	return *c.ReferenceFrames
}

// GetReferenceMaxAttempts returns the reference_max_attempts value or the default.
func (c *TrackingConfig) GetReferenceMaxAttempts() int {
	if c.ReferenceMaxAttempts == nil {
		return 10 * c.GetReferenceFrames() // default
	}
	return *c.ReferenceMaxAttempts
}

// GetStartFrame returns the start_frame value or the default.
func (c *TrackingConfig) GetStartFrame() int {
	if c.StartFrame == nil {
		return 0 // default
	}
	return *c.StartFrame
}

// GetEndFrame returns end_frame and whether it was set.
func (c *TrackingConfig) GetEndFrame() (int, bool) {
	if c.EndFrame == nil {
		return 0, false
	}
	return *c.EndFrame, true
}

// GetFPS returns the fps override or 0 to use the video's own rate.
func (c *TrackingConfig) GetFPS() float64 {
	if c.FPS == nil {
		return 0 // default
	}
	return *c.FPS
}

// GetCrop returns the crop box or the zero (no crop) box.
func (c *TrackingConfig) GetCrop() l1frames.Crop {
	if c.Crop == nil {
		return l1frames.Crop{}
	}
	return *c.Crop
}

// GetTimeBin returns the time_bin value or the default.
func (c *TrackingConfig) GetTimeBin() bool {
	if c.TimeBin == nil {
		return false // default
	}
	return *c.TimeBin
}

// GetNBinsMode returns the n_bins_mode value or the default.
func (c *TrackingConfig) GetNBinsMode() string {
	if c.NBinsMode == nil || *c.NBinsMode == "" {
		return string(l6summary.BinFixed) // default
	}
	return *c.NBinsMode
}

// GetPairing returns the pairing value or the default.
func (c *TrackingConfig) GetPairing() string {
	if c.Pairing == nil || *c.Pairing == "" {
		return string(l5regions.PairRankOrder) // default
	}
	return *c.Pairing
}

// GetScale returns the distance scale, or the zero Scale when unset.
func (c *TrackingConfig) GetScale() units.Scale {
	if c.Scale == nil {
		return units.Scale{}
	}
	return *c.Scale
}
