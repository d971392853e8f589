package stabilize

import (
	"log/slog"
	"time"
)

// Telemetry accumulates per-run observability counters. It is owned by the
// runner, never global, and is flushed once at teardown. It has no influence
// on the stabilisation result.
type Telemetry struct {
	FramePairs      int
	TrackedTotal    int
	DegeneratePairs int
	Pass1Duration   time.Duration
	Pass2Duration   time.Duration

	pairTime time.Duration
}

// RecordPair notes one processed frame pair.
func (t *Telemetry) RecordPair(tracked int, degenerate bool, d time.Duration) {
	t.FramePairs++
	t.TrackedTotal += tracked
	t.pairTime += d
	if degenerate {
		t.DegeneratePairs++
	}
}

// MeanTracked returns the average valid correspondence count per pair.
func (t *Telemetry) MeanTracked() float64 {
	if t.FramePairs == 0 {
		return 0
	}
	return float64(t.TrackedTotal) / float64(t.FramePairs)
}

// MeanPairDuration returns the average estimation time per pair.
func (t *Telemetry) MeanPairDuration() time.Duration {
	if t.FramePairs == 0 {
		return 0
	}
	return t.pairTime / time.Duration(t.FramePairs)
}

// Flush logs the aggregate counters.
func (t *Telemetry) Flush(log *slog.Logger) {
	log.Info("stabilisation telemetry",
		"frame_pairs", t.FramePairs,
		"mean_tracked_points", t.MeanTracked(),
		"degenerate_pairs", t.DegeneratePairs,
		"mean_pair_duration", t.MeanPairDuration(),
		"pass1_duration", t.Pass1Duration,
		"pass2_duration", t.Pass2Duration,
	)
}
