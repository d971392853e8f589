package motion

import (
	"math"

	"vidstab/internal/trajectory"
)

// Affine reconstructs the 2x3 warp matrix for a motion sample as a pure
// rotation plus translation, no scale or shear:
//
//	[ cos(da)  -sin(da)  dx ]
//	[ sin(da)   cos(da)  dy ]
func Affine(s trajectory.Sample) [2][3]float64 {
	sin, cos := math.Sincos(s.DA)
	return [2][3]float64{
		{cos, -sin, s.DX},
		{sin, cos, s.DY},
	}
}

// DecomposeAffine recovers the (dx, dy, da) triple from a 2x3 rigid matrix.
// The angle comes from atan2(m10, m00), matching the fitting path.
func DecomposeAffine(m [2][3]float64) trajectory.Sample {
	return trajectory.Sample{
		DX: m[0][2],
		DY: m[1][2],
		DA: math.Atan2(m[1][0], m[0][0]),
	}
}
