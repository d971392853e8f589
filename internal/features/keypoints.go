package features

import (
	"fmt"
	"sort"

	"gocv.io/x/gocv"
)

// keypointDetector is the subset of the gocv feature detectors we drive.
type keypointDetector interface {
	Detect(src gocv.Mat) []gocv.KeyPoint
	Close() error
}

// keypointSource adapts a descriptor-style detector (ORB, AKAZE, BRISK) to
// the plain point-set contract used by the optical-flow path.
type keypointSource struct {
	backend  Backend
	cfg      Config
	detector keypointDetector
}

func newKeypointSource(backend Backend, cfg Config) (*keypointSource, error) {
	var det keypointDetector
	switch backend {
	case BackendORB:
		orb := gocv.NewORB()
		det = &orb
	case BackendAKAZE:
		akaze := gocv.NewAKAZE()
		det = &akaze
	case BackendBRISK:
		brisk := gocv.NewBRISK()
		det = &brisk
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, backend)
	}
	return &keypointSource{backend: backend, cfg: cfg, detector: det}, nil
}

func (s *keypointSource) Name() string { return string(s.backend) }

func (s *keypointSource) Detect(gray gocv.Mat) ([]gocv.Point2f, error) {
	kps := s.detector.Detect(gray)
	if len(kps) > s.cfg.MaxCorners {
		// Keep the strongest responses so the flow tracker stays bounded.
		sort.Slice(kps, func(i, j int) bool { return kps[i].Response > kps[j].Response })
		kps = kps[:s.cfg.MaxCorners]
	}
	pts := make([]gocv.Point2f, len(kps))
	for i, kp := range kps {
		pts[i] = gocv.Point2f{X: float32(kp.X), Y: float32(kp.Y)}
	}
	return pts, nil
}

func (s *keypointSource) Close() error { return s.detector.Close() }
