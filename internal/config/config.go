package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	defaultConfigPath = "~/.config/vidstab/config.json"
	defaultParallel   = 2
)

// Config holds user-editable settings for the stabiliser.
type Config struct {
	Stabilization Stabilization `json:"stabilization"`
	Output        Output        `json:"output"`
	Processing    Processing    `json:"processing"`
	Logging       Logging       `json:"logging"`
	Paths         Paths         `json:"paths"`
}

// Stabilization captures the trajectory and estimation parameters.
type Stabilization struct {
	SmoothingRadius int     `json:"smoothing_radius"` // larger = more stable, less reactive to panning
	Features        string  `json:"features"`         // gftt, orb, akaze, brisk
	Mode            string  `json:"mode"`             // flow, homography
	MaxCorners      int     `json:"max_corners"`
	QualityLevel    float64 `json:"quality_level"`
	MinDistance     float64 `json:"min_distance"`
	BorderScale     float64 `json:"border_scale"` // post-warp zoom hiding border artifacts
}

// Output controls the written composite.
type Output struct {
	Codec           string `json:"codec"`             // fourcc for the video writer
	MaxPreviewWidth int    `json:"max_preview_width"` // halve output above this width; 0 disables
	StabilizedOnly  bool   `json:"stabilized_only"`   // write only the corrected frame, no side-by-side
}

// Processing captures execution preferences for watch mode.
type Processing struct {
	ParallelJobs  int `json:"parallel_jobs"`
	WatchSettleMS int `json:"watch_settle_ms"` // quiet time before a new file is picked up
}

// Logging controls logging verbosity and destinations.
type Logging struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Format     string `json:"format"` // text, json
	FileOutput bool   `json:"file_output"`
	LogDir     string `json:"log_dir"`
}

// Paths configures default locations.
type Paths struct {
	DefaultOutput string   `json:"default_output"`
	DatabasePath  string   `json:"database_path"`
	WatchDirs     []string `json:"watch_dirs"`
}

// Load reads configuration from disk, falling back to sensible defaults.
func Load() (*Config, error) {
	cfg := Default()

	configPath := os.Getenv("VIDSTAB_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	expanded, err := expandUser(configPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(expanded)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", expanded, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		Stabilization: Stabilization{
			SmoothingRadius: 50,
			Features:        "gftt",
			Mode:            "flow",
			MaxCorners:      200,
			QualityLevel:    0.01,
			MinDistance:     30,
			BorderScale:     1.04,
		},
		Output: Output{
			Codec:           "MJPG",
			MaxPreviewWidth: 1920,
		},
		Processing: Processing{
			ParallelJobs:  defaultParallel,
			WatchSettleMS: 2000,
		},
		Logging: Logging{
			Level:      "info",
			Format:     "text",
			FileOutput: false,
			LogDir:     "./logs",
		},
		Paths: Paths{
			DefaultOutput: "./stabilized",
			DatabasePath:  filepath.Join(os.TempDir(), "vidstab.db"),
		},
	}
}

// applyDefaults repairs values a config file cannot meaningfully set to their
// zero value. Decoding happens over Default(), so absent fields already carry
// their defaults; explicit zeros stay untouched where zero is valid
// (smoothing_radius, max_preview_width, min_distance, watch_settle_ms).
func (c *Config) applyDefaults() {
	d := Default()
	if c.Stabilization.Features == "" {
		c.Stabilization.Features = d.Stabilization.Features
	}
	if c.Stabilization.Mode == "" {
		c.Stabilization.Mode = d.Stabilization.Mode
	}
	if c.Stabilization.MaxCorners <= 0 {
		c.Stabilization.MaxCorners = d.Stabilization.MaxCorners
	}
	if c.Stabilization.QualityLevel <= 0 {
		c.Stabilization.QualityLevel = d.Stabilization.QualityLevel
	}
	if c.Stabilization.BorderScale <= 0 {
		c.Stabilization.BorderScale = d.Stabilization.BorderScale
	}
	if c.Output.Codec == "" {
		c.Output.Codec = d.Output.Codec
	}
	if c.Processing.ParallelJobs <= 0 {
		c.Processing.ParallelJobs = d.Processing.ParallelJobs
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
	if c.Paths.DefaultOutput == "" {
		c.Paths.DefaultOutput = d.Paths.DefaultOutput
	}
	if c.Paths.DatabasePath == "" {
		c.Paths.DatabasePath = d.Paths.DatabasePath
	}
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	expanded, err := expandUser(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(expanded, data, 0o644)
}

// DefaultPath returns the expanded location of the config file.
func DefaultPath() string {
	path := os.Getenv("VIDSTAB_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	expanded, err := expandUser(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandUser(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if path == "~" {
		return home, nil
	}

	return filepath.Join(home, path[2:]), nil
}
