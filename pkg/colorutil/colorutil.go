// Package colorutil provides shared colors for the plate reader.
package colorutil

import (
	"image/color"
)

// BorderFill is the value written into pixels exposed by rotation. The border
// cropper treats exactly this value as "no content", so the two must agree.
var BorderFill = color.RGBA{R: 0, G: 0, B: 0, A: 0}

// GlyphPad is the uniform border added around each extracted glyph.
var GlyphPad = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Annotation colors.
var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Green = color.RGBA{R: 0, G: 255, B: 0, A: 255}
)

// BGR returns the channel values of c in OpenCV's B, G, R order.
func BGR(c color.RGBA) [3]uint8 {
	return [3]uint8{c.B, c.G, c.R}
}
