// Package testplate draws synthetic plate crops for tests and the debug tool.
package testplate

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Spec describes a synthetic plate: black bars on white between two black
// bands, optionally rotated about the center.
type Spec struct {
	Width, Height int
	Band          int // height of the black band at top and bottom
	Bars          int
	BarWidth      int
	BarHeight     int
	FirstBarX     int
	BarPitch      int
	// Angle in degrees, OpenCV convention (positive is counter-clockwise on
	// screen).
	Angle float64
}

// Standard is a 240x80 plate with six 10x40 bars and 10 px bands.
func Standard() Spec {
	return Spec{
		Width: 240, Height: 80,
		Band:      10,
		Bars:      6,
		BarWidth:  10,
		BarHeight: 40,
		FirstBarX: 30,
		BarPitch:  35,
	}
}

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Draw renders s as a 3-channel BGR image.
func Draw(s Spec) gocv.Mat {
	plate := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), s.Height, s.Width, gocv.MatTypeCV8UC3)

	if s.Band > 0 {
		Fill(plate, image.Rect(0, 0, s.Width, s.Band), 0)
		Fill(plate, image.Rect(0, s.Height-s.Band, s.Width, s.Height), 0)
	}

	top := (s.Height - s.BarHeight) / 2
	for i := 0; i < s.Bars; i++ {
		x := s.FirstBarX + i*s.BarPitch
		Fill(plate, image.Rect(x, top, x+s.BarWidth, top+s.BarHeight), 0)
	}

	if s.Angle == 0 {
		return plate
	}
	defer plate.Close()

	center := image.Point{X: s.Width / 2, Y: s.Height / 2}
	m := gocv.GetRotationMatrix2D(center, s.Angle, 1.0)
	defer m.Close()

	rotated := gocv.NewMat()
	gocv.WarpAffineWithParams(plate, &rotated, m, image.Pt(s.Width, s.Height),
		gocv.InterpolationLinear, gocv.BorderConstant, white)
	return rotated
}

// Blank returns a uniform 3-channel image of the given gray level.
func Blank(width, height int, level uint8) gocv.Mat {
	v := float64(level)
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), height, width, gocv.MatTypeCV8UC3)
}

// Fill sets every pixel of img inside r (half-open) to level. Unlike
// gocv.Rectangle it draws no anti-aliased edge.
func Fill(img gocv.Mat, r image.Rectangle, level uint8) {
	region := img.Region(r)
	defer region.Close()
	v := float64(level)
	region.SetTo(gocv.NewScalar(v, v, v, 0))
}
