package motion

import (
	"math"

	"gocv.io/x/gocv"

	"vidstab/internal/features"
	"vidstab/internal/trajectory"
)

// minRigidPairs is the smallest correspondence count we accept before fitting
// a rigid transform.
const minRigidPairs = 3

// flowEstimator detects points on the previous frame, tracks them into the
// current frame with pyramidal Lucas-Kanade flow and fits a rigid transform
// to the surviving pairs.
type flowEstimator struct {
	src features.Source
}

func (e *flowEstimator) Estimate(prevGray, currGray gocv.Mat) (Estimate, error) {
	pts, err := e.src.Detect(prevGray)
	if err != nil {
		return Estimate{}, err
	}
	if len(pts) < minRigidPairs {
		return Estimate{Tracked: len(pts)}, ErrDegenerate
	}

	prevPts := pointsToMat(pts)
	defer prevPts.Close()
	nextPts := gocv.NewMat()
	defer nextPts.Close()
	status := gocv.NewMat()
	defer status.Close()
	flowErr := gocv.NewMat()
	defer flowErr.Close()

	gocv.CalcOpticalFlowPyrLK(prevGray, currGray, prevPts, nextPts, &status, &flowErr)

	// Keep only the pairs whose tracking status is valid.
	prevValid := make([]gocv.Point2f, 0, len(pts))
	currValid := make([]gocv.Point2f, 0, len(pts))
	for i := range pts {
		if i >= status.Rows() || status.GetUCharAt(i, 0) != 1 {
			continue
		}
		prevValid = append(prevValid, pts[i])
		currValid = append(currValid, matPointAt(nextPts, i))
	}
	if len(prevValid) < minRigidPairs {
		return Estimate{Tracked: len(prevValid)}, ErrDegenerate
	}

	from := gocv.NewPoint2fVectorFromPoints(prevValid)
	defer from.Close()
	to := gocv.NewPoint2fVectorFromPoints(currValid)
	defer to.Close()

	m := gocv.EstimateAffinePartial2D(from, to)
	defer m.Close()
	if m.Empty() {
		return Estimate{Tracked: len(prevValid)}, ErrDegenerate
	}

	sample := trajectory.Sample{
		DX: m.GetDoubleAt(0, 2),
		DY: m.GetDoubleAt(1, 2),
		DA: math.Atan2(m.GetDoubleAt(1, 0), m.GetDoubleAt(0, 0)),
	}
	return Estimate{Sample: sample, Tracked: len(prevValid)}, nil
}

func (e *flowEstimator) Close() error { return e.src.Close() }

// pointsToMat packs points into the Nx2 CV32F layout the flow call expects.
func pointsToMat(pts []gocv.Point2f) gocv.Mat {
	m := gocv.NewMatWithSize(len(pts), 2, gocv.MatTypeCV32F)
	for i, p := range pts {
		m.SetFloatAt(i, 0, p.X)
		m.SetFloatAt(i, 1, p.Y)
	}
	return m
}

// matPointAt reads row i of a point matrix, which the flow call may return
// either as a two-channel column or as a two-column row.
func matPointAt(m gocv.Mat, i int) gocv.Point2f {
	if m.Channels() == 2 {
		v := m.GetVecfAt(i, 0)
		return gocv.Point2f{X: v[0], Y: v[1]}
	}
	return gocv.Point2f{X: m.GetFloatAt(i, 0), Y: m.GetFloatAt(i, 1)}
}
