package features

import (
	"errors"
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// Backend names a keypoint detector variant.
type Backend string

const (
	BackendGFTT  Backend = "gftt"
	BackendORB   Backend = "orb"
	BackendAKAZE Backend = "akaze"
	BackendBRISK Backend = "brisk"
)

// ErrUnsupportedBackend is returned when a backend name is not recognised.
// It is surfaced at construction time, before any frame is processed.
var ErrUnsupportedBackend = errors.New("features: unsupported backend")

// Source extracts trackable points from a grayscale frame. Implementations
// must not mutate the input frame; an empty slice means nothing was found.
type Source interface {
	// Detect returns the detected points for one frame.
	Detect(gray gocv.Mat) ([]gocv.Point2f, error)

	// Name identifies the backend for logging.
	Name() string

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds detection parameters shared across backends.
type Config struct {
	MaxCorners   int
	QualityLevel float64
	MinDistance  float64
}

// DefaultConfig returns the detection parameters used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxCorners:   200,
		QualityLevel: 0.01,
		MinDistance:  30,
	}
}

// ParseBackend maps a user-supplied name to a Backend.
func ParseBackend(name string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(name))) {
	case BackendGFTT:
		return BackendGFTT, nil
	case BackendORB:
		return BackendORB, nil
	case BackendAKAZE:
		return BackendAKAZE, nil
	case BackendBRISK:
		return BackendBRISK, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedBackend, name)
	}
}

// New constructs the Source for the given backend.
func New(backend Backend, cfg Config) (Source, error) {
	if cfg.MaxCorners <= 0 {
		cfg = DefaultConfig()
	}
	switch backend {
	case BackendGFTT:
		return &gfttSource{cfg: cfg}, nil
	case BackendORB:
		return newKeypointSource(backend, cfg)
	case BackendAKAZE:
		return newKeypointSource(backend, cfg)
	case BackendBRISK:
		return newKeypointSource(backend, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, backend)
	}
}
