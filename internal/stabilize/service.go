package stabilize

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vidstab/internal/config"
	"vidstab/internal/features"
	"vidstab/internal/motion"
	"vidstab/internal/pipeline"
	"vidstab/internal/report"
	"vidstab/internal/storage"
	"vidstab/internal/video"
)

// Request describes one stabilisation invocation.
type Request struct {
	Input     string
	Output    string
	ChartPath string
	Options   Options
	SkipStore bool
}

// Service opens the video collaborators, runs the pipeline and records the
// outcome. It also serves as the job processor for watch mode.
type Service struct {
	cfg   *config.Config
	log   *slog.Logger
	store *storage.Store
}

// NewService builds a Service. store may be nil to disable run history.
func NewService(cfg *config.Config, log *slog.Logger, store *storage.Store) *Service {
	return &Service{cfg: cfg, log: log, store: store}
}

// OptionsFromConfig resolves runner options from the configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SmoothingRadius: cfg.Stabilization.SmoothingRadius,
		Mode:            motion.Mode(cfg.Stabilization.Mode),
		Backend:         features.Backend(cfg.Stabilization.Features),
		Detection: features.Config{
			MaxCorners:   cfg.Stabilization.MaxCorners,
			QualityLevel: cfg.Stabilization.QualityLevel,
			MinDistance:  cfg.Stabilization.MinDistance,
		},
		BorderScale:     cfg.Stabilization.BorderScale,
		MaxPreviewWidth: cfg.Output.MaxPreviewWidth,
		SideBySide:      !cfg.Output.StabilizedOnly,
	}
}

// Stabilize runs the full pipeline for one video.
func (s *Service) Stabilize(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	log := s.log.With("run", runID, "input", req.Input)

	runner, err := NewRunner(req.Options, log)
	if err != nil {
		return nil, err
	}

	est, err := s.newEstimator(req.Options)
	if err != nil {
		return nil, err
	}
	defer est.Close()

	if s.store != nil && !req.SkipStore {
		if err := s.store.RecordRunStart(storage.RunRecord{
			ID:              runID,
			InputPath:       req.Input,
			OutputPath:      req.Output,
			Mode:            string(req.Options.Mode),
			Features:        string(req.Options.Backend),
			SmoothingRadius: req.Options.SmoothingRadius,
		}); err != nil {
			log.Warn("could not record run start", "error", err)
		}
	}

	start := time.Now()
	res, runErr := s.run(ctx, req, runner, est)

	if s.store != nil && !req.SkipStore {
		status := "completed"
		errMsg := ""
		frames, mean, degenerate := 0, 0.0, 0
		if runErr != nil {
			status = "failed"
			errMsg = runErr.Error()
		} else {
			frames = res.FramesWritten
			mean = res.MeanTrackedPoints
			degenerate = res.DegeneratePairs
		}
		if err := s.store.RecordRunResult(runID, status, frames, mean, degenerate, time.Since(start), errMsg); err != nil {
			log.Warn("could not record run result", "error", err)
		}
	}
	if runErr != nil {
		return nil, runErr
	}

	if req.ChartPath != "" {
		if err := report.WriteTrajectoryChart(req.ChartPath, res.Raw, res.Smoothed); err != nil {
			log.Warn("could not write trajectory chart", "path", req.ChartPath, "error", err)
		} else {
			log.Info("trajectory chart written", "path", req.ChartPath)
		}
	}
	return res, nil
}

// run opens source and sink, guarantees their release on every exit path and
// drives the runner. The estimator is created by the caller so its fatal
// configuration errors surface before any I/O.
func (s *Service) run(ctx context.Context, req Request, runner *Runner, est motion.Estimator) (*Result, error) {
	src, err := video.OpenSource(req.Input)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	w, h := src.Dimensions()
	outW, outH := OutputDimensions(w, h, req.Options.MaxPreviewWidth, req.Options.SideBySide)
	sink, err := video.OpenSink(req.Output, s.cfg.Output.Codec, src.FPS(), outW, outH)
	if err != nil {
		return nil, err
	}
	defer sink.Close()

	s.log.Info("stabilisation started",
		"input", req.Input,
		"output", req.Output,
		"frames", src.FrameCount(),
		"dimensions", [2]int{w, h},
		"fps", src.FPS(),
		"mode", string(req.Options.Mode),
		"features", string(req.Options.Backend),
		"smoothing_radius", req.Options.SmoothingRadius,
	)

	return runner.Run(ctx, src, sink, est)
}

func (s *Service) newEstimator(opts Options) (motion.Estimator, error) {
	var src features.Source
	if opts.Mode == motion.ModeFlow {
		var err error
		src, err = features.New(opts.Backend, opts.Detection)
		if err != nil {
			return nil, err
		}
	}
	return motion.New(opts.Mode, src)
}

// Process implements pipeline.Processor for watch-mode jobs.
func (s *Service) Process(ctx context.Context, job pipeline.Job) pipeline.Result {
	res, err := s.Stabilize(ctx, Request{
		Input:     job.InputPath,
		Output:    job.Output,
		ChartPath: job.ChartPath,
		Options:   OptionsFromConfig(s.cfg),
	})
	out := pipeline.Result{Job: job, Error: err}
	if res != nil {
		out.FramesWritten = res.FramesWritten
	}
	return out
}
