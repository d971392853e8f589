// Package render applies the corrective warp and produces the side-by-side
// output frame.
package render

import (
	"image"

	"gocv.io/x/gocv"
)

// DefaultBorderScale is the fixed zoom applied after warping to push
// warp-induced black borders out of the visible area.
const DefaultBorderScale = 1.04

// DefaultMaxPreviewWidth is the composite width above which the output is
// halved for preview/storage purposes.
const DefaultMaxPreviewWidth = 1920

// Compositor warps frames and assembles the output frame, by default the
// original|stabilised composite.
type Compositor struct {
	width           int
	height          int
	borderScale     float64
	maxPreviewWidth int
	sideBySide      bool
}

// NewCompositor builds a compositor for frames of the given dimensions.
// maxPreviewWidth of zero disables the preview downsize; sideBySide false
// drops the original half from the output.
func NewCompositor(width, height int, borderScale float64, maxPreviewWidth int, sideBySide bool) *Compositor {
	if borderScale <= 0 {
		borderScale = DefaultBorderScale
	}
	return &Compositor{
		width:           width,
		height:          height,
		borderScale:     borderScale,
		maxPreviewWidth: maxPreviewWidth,
		sideBySide:      sideBySide,
	}
}

// Warp resamples frame through the 2x3 affine matrix at source dimensions.
// The caller owns the returned Mat.
func (c *Compositor) Warp(frame gocv.Mat, m [2][3]float64) gocv.Mat {
	t := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer t.Close()
	for r := 0; r < 2; r++ {
		for col := 0; col < 3; col++ {
			t.SetDoubleAt(r, col, m[r][col])
		}
	}
	out := gocv.NewMat()
	gocv.WarpAffine(frame, &out, t, image.Pt(c.width, c.height))
	return out
}

// FixBorder zooms the frame about its centre by the border scale. The centre
// pixel is invariant under this transform.
func (c *Compositor) FixBorder(frame gocv.Mat) gocv.Mat {
	t := gocv.GetRotationMatrix2D(image.Pt(c.width/2, c.height/2), 0, c.borderScale)
	defer t.Close()
	out := gocv.NewMat()
	gocv.WarpAffine(frame, &out, t, image.Pt(c.width, c.height))
	return out
}

// Compose builds the output frame: the original and stabilised frames
// concatenated horizontally, or only the stabilised frame when side-by-side
// is disabled. Both dimensions are halved if the result exceeds the preview
// width limit.
func (c *Compositor) Compose(orig, stabilised gocv.Mat) gocv.Mat {
	out := gocv.NewMat()
	if c.sideBySide {
		gocv.Hconcat(orig, stabilised, &out)
	} else {
		stabilised.CopyTo(&out)
	}
	if c.maxPreviewWidth > 0 && out.Cols() > c.maxPreviewWidth {
		resized := gocv.NewMat()
		gocv.Resize(out, &resized, image.Pt(out.Cols()/2, out.Rows()/2), 0, 0, gocv.InterpolationLinear)
		out.Close()
		return resized
	}
	return out
}
