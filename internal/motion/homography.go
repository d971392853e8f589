package motion

import (
	"math"

	"gocv.io/x/gocv"

	"vidstab/internal/trajectory"
)

// Homography estimation constants.
const (
	minHomographyPairs = 4
	ratioTestThreshold = 0.7   // best-match distance must beat 0.7x the runner-up
	ransacThreshold    = 3.0   // max reprojection error for a pair to count as an inlier
	ransacMaxIter      = 2000  // RANSAC iteration cap
	ransacConfidence   = 0.995 // RANSAC confidence level
)

// homographyEstimator matches AKAZE descriptors between the two frames,
// filters matches with the ratio test and extracts translation and rotation
// from a RANSAC-estimated homography.
type homographyEstimator struct {
	detector gocv.AKAZE
	matcher  gocv.BFMatcher
}

func newHomographyEstimator() *homographyEstimator {
	return &homographyEstimator{
		detector: gocv.NewAKAZE(),
		matcher:  gocv.NewBFMatcherWithParams(gocv.NormHamming, false),
	}
}

func (e *homographyEstimator) Estimate(prevGray, currGray gocv.Mat) (Estimate, error) {
	noMask := gocv.NewMat()
	defer noMask.Close()

	prevKps, prevDesc := e.detector.DetectAndCompute(prevGray, noMask)
	defer prevDesc.Close()
	currKps, currDesc := e.detector.DetectAndCompute(currGray, noMask)
	defer currDesc.Close()

	if len(prevKps) < minHomographyPairs || len(currKps) < minHomographyPairs {
		return Estimate{}, ErrDegenerate
	}

	matches := e.matcher.KNNMatch(prevDesc, currDesc, 2)

	prevPts := make([]gocv.Point2f, 0, len(matches))
	currPts := make([]gocv.Point2f, 0, len(matches))
	for _, m := range matches {
		if len(m) < 2 {
			continue
		}
		if m[0].Distance >= ratioTestThreshold*m[1].Distance {
			continue
		}
		p := prevKps[m[0].QueryIdx]
		c := currKps[m[0].TrainIdx]
		prevPts = append(prevPts, gocv.Point2f{X: float32(p.X), Y: float32(p.Y)})
		currPts = append(currPts, gocv.Point2f{X: float32(c.X), Y: float32(c.Y)})
	}
	if len(prevPts) < minHomographyPairs {
		return Estimate{Tracked: len(prevPts)}, ErrDegenerate
	}

	src := pointsToMat(prevPts)
	defer src.Close()
	dst := pointsToMat(currPts)
	defer dst.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	h := gocv.FindHomography(src, &dst, gocv.HomograpyMethodRANSAC, ransacThreshold, &mask, ransacMaxIter, ransacConfidence)
	defer h.Close()
	if h.Empty() {
		return Estimate{Tracked: len(prevPts)}, ErrDegenerate
	}

	sample := trajectory.Sample{
		DX: h.GetDoubleAt(0, 2),
		DY: h.GetDoubleAt(1, 2),
		DA: math.Atan2(h.GetDoubleAt(1, 0), h.GetDoubleAt(0, 0)),
	}
	return Estimate{Sample: sample, Tracked: len(prevPts)}, nil
}

func (e *homographyEstimator) Close() error {
	if err := e.detector.Close(); err != nil {
		return err
	}
	return e.matcher.Close()
}
