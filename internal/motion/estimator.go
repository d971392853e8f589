package motion

import (
	"errors"
	"fmt"
	"strings"

	"gocv.io/x/gocv"

	"vidstab/internal/features"
	"vidstab/internal/trajectory"
)

// Mode selects the estimation strategy.
type Mode string

const (
	// ModeFlow tracks detected points with pyramidal Lucas-Kanade optical
	// flow and fits a rigid (rotation + translation) transform.
	ModeFlow Mode = "flow"

	// ModeHomography matches binary descriptors between the two frames and
	// extracts translation/rotation from a RANSAC homography.
	ModeHomography Mode = "homography"
)

// ErrDegenerate marks a frame pair with too few valid correspondences for a
// well-posed fit. Callers get an identity sample alongside it and are
// expected to log and continue.
var ErrDegenerate = errors.New("motion: degenerate correspondence set")

// Estimate is one inter-frame motion measurement.
type Estimate struct {
	Sample trajectory.Sample

	// Tracked is the number of valid correspondences used in the fit.
	Tracked int
}

// Estimator produces one motion estimate per consecutive grayscale frame pair.
type Estimator interface {
	Estimate(prevGray, currGray gocv.Mat) (Estimate, error)
	Close() error
}

// ParseMode maps a user-supplied name to a Mode.
func ParseMode(name string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(name))) {
	case ModeFlow:
		return ModeFlow, nil
	case ModeHomography:
		return ModeHomography, nil
	default:
		return "", fmt.Errorf("motion: unsupported mode %q", name)
	}
}

// New constructs the estimator for the given mode. The feature source is only
// consulted in flow mode; homography mode owns its own detector because it
// needs descriptors, not bare points.
func New(mode Mode, src features.Source) (Estimator, error) {
	switch mode {
	case ModeFlow:
		if src == nil {
			return nil, errors.New("motion: flow mode requires a feature source")
		}
		return &flowEstimator{src: src}, nil
	case ModeHomography:
		return newHomographyEstimator(), nil
	default:
		return nil, fmt.Errorf("motion: unsupported mode %q", mode)
	}
}
