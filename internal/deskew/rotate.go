package deskew

import (
	"image"
	"image/color"

	"plate-reader/pkg/geometry"

	"gocv.io/x/gocv"
)

// Rotate rotates img about its center by angle degrees (positive is
// counter-clockwise on screen). The output keeps the input size, so corners
// may be clipped; exposed pixels are set to fill.
func Rotate(img gocv.Mat, angle float64, fill color.RGBA) gocv.Mat {
	w, h := img.Cols(), img.Rows()
	center := geometry.Point2D{X: float64(w) / 2, Y: float64(h) / 2}
	t := geometry.RotationAbout(center, angle)

	m := affineMat(t)
	defer m.Close()

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(img, &dst, m, image.Pt(w, h),
		gocv.InterpolationLinear, gocv.BorderConstant, fill)
	return dst
}

// affineMat converts a transform to the 2x3 CV64F matrix WarpAffine expects.
func affineMat(t geometry.AffineTransform) gocv.Mat {
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	rows := t.ToMatrix()
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, rows[r][c])
		}
	}
	return m
}
