package features

import "gocv.io/x/gocv"

// gfttSource detects Shi-Tomasi corners via GoodFeaturesToTrack.
type gfttSource struct {
	cfg Config
}

func (s *gfttSource) Name() string { return string(BackendGFTT) }

func (s *gfttSource) Detect(gray gocv.Mat) ([]gocv.Point2f, error) {
	corners := gocv.NewMat()
	defer corners.Close()

	gocv.GoodFeaturesToTrack(gray, &corners, s.cfg.MaxCorners, s.cfg.QualityLevel, s.cfg.MinDistance)

	pts := make([]gocv.Point2f, 0, corners.Rows())
	for i := 0; i < corners.Rows(); i++ {
		v := corners.GetVecfAt(i, 0)
		pts = append(pts, gocv.Point2f{X: v[0], Y: v[1]})
	}
	return pts, nil
}

func (s *gfttSource) Close() error { return nil }
