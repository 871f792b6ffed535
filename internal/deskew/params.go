// Package deskew estimates the skew of a plate crop, rotates it level and trims
// the black rows that rotation and the plate frame leave above and below the
// characters.
package deskew

import (
	"image/color"
	"math"

	"plate-reader/pkg/colorutil"
)

// Params controls skew estimation and the rotation fill.
type Params struct {
	// Canny thresholds on the grayscale crop.
	CannyLow  float32 `json:"canny_low"`
	CannyHigh float32 `json:"canny_high"`

	// Probabilistic Hough transform.
	HoughRho      float32 `json:"hough_rho"`
	HoughTheta    float32 `json:"hough_theta"` // radians
	HoughVotes    int     `json:"hough_votes"`
	MinLineLength float32 `json:"min_line_length"`
	MaxLineGap    float32 `json:"max_line_gap"`

	// BorderFill is written into pixels exposed by rotation and is the value
	// CropBorder treats as empty.
	BorderFill color.RGBA `json:"-"`
}

// DefaultParams returns parameters tuned for tight plate crops of roughly
// 100-300 px width.
func DefaultParams() Params {
	return Params{
		CannyLow:  180,
		CannyHigh: 200,

		HoughRho:      1,
		HoughTheta:    math.Pi / 160,
		HoughVotes:    30,
		MinLineLength: 40,

		// Canny renders a tilted edge as a staircase; a small gap keeps a
		// band edge in one piece so it outlasts the 40 px character strokes.
		MaxLineGap: 5,

		BorderFill: colorutil.BorderFill,
	}
}

// WithCanny returns a copy of params with custom edge thresholds.
func (p Params) WithCanny(low, high float32) Params {
	p.CannyLow = low
	p.CannyHigh = high
	return p
}

// WithHough returns a copy of params with a custom vote threshold and
// segment length limits.
func (p Params) WithHough(votes int, minLineLength, maxLineGap float32) Params {
	p.HoughVotes = votes
	p.MinLineLength = minLineLength
	p.MaxLineGap = maxLineGap
	return p
}
