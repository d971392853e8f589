// Package cli wires the cobra command surface to the stabilisation service.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"vidstab/internal/config"
	"vidstab/internal/features"
	"vidstab/internal/motion"
	"vidstab/internal/pipeline"
	"vidstab/internal/stabilize"
	"vidstab/internal/storage"
)

// Version is the build version, overridable at link time.
var Version = "0.3.0"

// stabilizeService is the surface the commands need; tests substitute stubs.
type stabilizeService interface {
	Stabilize(ctx context.Context, req stabilize.Request) (*stabilize.Result, error)
	Process(ctx context.Context, job pipeline.Job) pipeline.Result
}

// Root carries shared command dependencies.
type Root struct {
	cfg   *config.Config
	log   *slog.Logger
	store *storage.Store
	svc   stabilizeService
}

// NewRoot builds the command dependencies around the real service.
func NewRoot(cfg *config.Config, logger *slog.Logger, store *storage.Store) *Root {
	return &Root{
		cfg:   cfg,
		log:   logger,
		store: store,
		svc:   stabilize.NewService(cfg, logger, store),
	}
}

// defaultOutputPath derives the output location for an input video when none
// was given: <default_output>/<name>_stabilized<ext>.
func (r *Root) defaultOutputPath(input string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = ".avi"
	}
	return filepath.Join(r.cfg.Paths.DefaultOutput, stem+"_stabilized"+ext)
}

// resolveOptions merges config defaults with explicit flag overrides.
func (r *Root) resolveOptions(radius int, radiusSet bool, featuresName string, mode string) stabilize.Options {
	opts := stabilize.OptionsFromConfig(r.cfg)
	if radiusSet {
		opts.SmoothingRadius = radius
	}
	if featuresName != "" {
		opts.Backend = features.Backend(featuresName)
	}
	if mode != "" {
		opts.Mode = motion.Mode(mode)
	}
	return opts
}

func formatRunSummary(res *stabilize.Result) string {
	return fmt.Sprintf("wrote %d frames (%d pairs, %.1f tracked points/pair, %d degenerate) in %s",
		res.FramesWritten,
		res.FramePairs,
		res.MeanTrackedPoints,
		res.DegeneratePairs,
		(res.Pass1Duration + res.Pass2Duration).Round(1e6),
	)
}
