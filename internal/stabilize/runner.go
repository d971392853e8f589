// Package stabilize drives the two-pass stabilisation of a video: pass 1
// estimates inter-frame motion and builds the camera trajectory, pass 2
// replays the stream through the corrective warp and writes the output.
package stabilize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"vidstab/internal/features"
	"vidstab/internal/motion"
	"vidstab/internal/render"
	"vidstab/internal/trajectory"
	"vidstab/internal/video"
)

// State tracks runner progress through the two passes.
type State string

const (
	StateInitialized     State = "initialized"
	StatePass1Running    State = "pass1_running"
	StateTrajectoryReady State = "trajectory_ready"
	StatePass2Running    State = "pass2_running"
	StateComplete        State = "complete"
	StateFailed          State = "failed"
)

// Options configure one stabilisation run.
type Options struct {
	SmoothingRadius int
	Mode            motion.Mode
	Backend         features.Backend
	Detection       features.Config
	BorderScale     float64
	MaxPreviewWidth int
	SideBySide      bool
}

// DefaultOptions returns the reference parameters.
func DefaultOptions() Options {
	return Options{
		SmoothingRadius: 50,
		Mode:            motion.ModeFlow,
		Backend:         features.BackendGFTT,
		Detection:       features.DefaultConfig(),
		BorderScale:     render.DefaultBorderScale,
		MaxPreviewWidth: render.DefaultMaxPreviewWidth,
		SideBySide:      true,
	}
}

// Result summarises a completed run.
type Result struct {
	FramesWritten     int
	FramePairs        int
	DegeneratePairs   int
	MeanTrackedPoints float64
	Raw               trajectory.Path
	Smoothed          trajectory.Path
	Pass1Duration     time.Duration
	Pass2Duration     time.Duration
}

// Runner executes the two-pass pipeline over injected collaborators.
type Runner struct {
	opts  Options
	log   *slog.Logger
	state State
	tel   Telemetry
}

// NewRunner validates the options and returns a runner in the Initialized
// state. Unsupported backends or modes fail here, before any frame work.
func NewRunner(opts Options, log *slog.Logger) (*Runner, error) {
	if opts.SmoothingRadius < 0 {
		return nil, fmt.Errorf("stabilize: smoothing radius must be >= 0, got %d", opts.SmoothingRadius)
	}
	if _, err := motion.ParseMode(string(opts.Mode)); err != nil {
		return nil, err
	}
	if _, err := features.ParseBackend(string(opts.Backend)); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{opts: opts, log: log, state: StateInitialized}, nil
}

// State reports the current pipeline state.
func (r *Runner) State() State { return r.state }

// Telemetry exposes the run counters, valid after Run returns.
func (r *Runner) Telemetry() *Telemetry { return &r.tel }

func (r *Runner) setState(s State) {
	r.state = s
	r.log.Debug("pipeline state change", "state", string(s))
}

// fail flushes whatever telemetry accumulated so aborted runs still report
// their aggregates.
func (r *Runner) fail(err error) error {
	r.setState(StateFailed)
	r.tel.Flush(r.log)
	return err
}

// Run stabilises src into sink using the given estimator. The caller owns
// source, sink and estimator lifetimes; Run touches them strictly
// sequentially and never after returning.
func (r *Runner) Run(ctx context.Context, src video.Source, sink video.Sink, est motion.Estimator) (*Result, error) {
	if src.FrameCount() < 2 {
		return nil, r.fail(fmt.Errorf("%w: need at least two frames, have %d", video.ErrSourceUnavailable, src.FrameCount()))
	}

	r.setState(StatePass1Running)
	start := time.Now()
	samples, err := r.pass1(ctx, src, est)
	r.tel.Pass1Duration = time.Since(start)
	if err != nil {
		return nil, r.fail(err)
	}
	if len(samples) == 0 {
		return nil, r.fail(fmt.Errorf("%w: no frame pairs could be read", video.ErrSourceUnavailable))
	}

	r.setState(StateTrajectoryReady)
	raw := trajectory.Accumulate(samples)
	smoothed := trajectory.Smooth(raw, r.opts.SmoothingRadius)
	corrected := trajectory.Correct(samples, raw, smoothed)

	r.setState(StatePass2Running)
	start = time.Now()
	written, err := r.pass2(ctx, src, sink, corrected)
	r.tel.Pass2Duration = time.Since(start)
	if err != nil {
		return nil, r.fail(err)
	}

	r.setState(StateComplete)
	r.tel.Flush(r.log)
	return &Result{
		FramesWritten:     written,
		FramePairs:        r.tel.FramePairs,
		DegeneratePairs:   r.tel.DegeneratePairs,
		MeanTrackedPoints: r.tel.MeanTracked(),
		Raw:               raw,
		Smoothed:          smoothed,
		Pass1Duration:     r.tel.Pass1Duration,
		Pass2Duration:     r.tel.Pass2Duration,
	}, nil
}

// pass1 walks consecutive frame pairs and collects raw motion samples. An
// early end of stream shortens the run instead of failing it.
func (r *Runner) pass1(ctx context.Context, src video.Source, est motion.Estimator) ([]trajectory.Sample, error) {
	n := src.FrameCount()

	frame := gocv.NewMat()
	defer frame.Close()
	prevGray := gocv.NewMat()
	defer prevGray.Close()
	currGray := gocv.NewMat()
	defer currGray.Close()

	if !src.Read(&frame) {
		return nil, fmt.Errorf("%w: could not read first frame", video.ErrSourceUnavailable)
	}
	gocv.CvtColor(frame, &prevGray, gocv.ColorBGRToGray)

	samples := make([]trajectory.Sample, 0, n-1)
	for i := 0; i < n-1; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !src.Read(&frame) {
			r.log.Warn("stream ended early during pass 1", "pairs_collected", i, "expected", n-1)
			break
		}
		gocv.CvtColor(frame, &currGray, gocv.ColorBGRToGray)

		pairStart := time.Now()
		e, err := est.Estimate(prevGray, currGray)
		switch {
		case errors.Is(err, motion.ErrDegenerate):
			// Fall back to identity motion for this pair and keep going.
			r.log.Warn("degenerate frame pair, keeping identity motion", "pair", i, "tracked", e.Tracked)
			e.Sample = trajectory.Sample{}
			r.tel.RecordPair(e.Tracked, true, time.Since(pairStart))
		case err != nil:
			return nil, err
		default:
			r.tel.RecordPair(e.Tracked, false, time.Since(pairStart))
		}
		samples = append(samples, e.Sample)

		r.log.Info("frame pair processed",
			"pair", i,
			"of", n-1,
			"tracked_points", e.Tracked,
			"dx", e.Sample.DX,
			"dy", e.Sample.DY,
			"da", e.Sample.DA,
		)

		prevGray, currGray = currGray, prevGray
	}
	return samples, nil
}

// pass2 rewinds the source and writes one corrected frame per collected
// sample.
func (r *Runner) pass2(ctx context.Context, src video.Source, sink video.Sink, corrected []trajectory.Sample) (int, error) {
	if err := src.Reset(); err != nil {
		return 0, fmt.Errorf("stabilize: rewind source: %w", err)
	}

	w, h := src.Dimensions()
	comp := render.NewCompositor(w, h, r.opts.BorderScale, r.opts.MaxPreviewWidth, r.opts.SideBySide)

	frame := gocv.NewMat()
	defer frame.Close()

	written := 0
	for i := range corrected {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if !src.Read(&frame) {
			r.log.Warn("stream ended early during pass 2", "frames_written", written)
			break
		}

		warped := comp.Warp(frame, motion.Affine(corrected[i]))
		fixed := comp.FixBorder(warped)
		warped.Close()
		out := comp.Compose(frame, fixed)
		fixed.Close()

		err := sink.Write(out)
		out.Close()
		if err != nil {
			return written, fmt.Errorf("stabilize: write frame %d: %w", i, err)
		}
		written++
	}
	return written, nil
}

// OutputDimensions reports the sink dimensions for a source of the given
// size: doubled width for the side-by-side composite, halved in both
// directions when the preview limit kicks in.
func OutputDimensions(width, height, maxPreviewWidth int, sideBySide bool) (int, int) {
	outW, outH := width, height
	if sideBySide {
		outW = 2 * width
	}
	if maxPreviewWidth > 0 && outW > maxPreviewWidth {
		outW /= 2
		outH /= 2
	}
	return outW, outH
}
