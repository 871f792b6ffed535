// Package segment normalizes a level plate crop and cuts it into glyph images.
package segment

// Params controls normalization, binarization and candidate extraction.
type Params struct {
	// Scale is the upscale factor applied to the cropped plate.
	Scale float64 `json:"scale"`

	// Threshold estimation: margins as fractions of width and height,
	// and the fraction of the interior mean used as the cutoff.
	MarginX        float64 `json:"margin_x"`
	MarginY        float64 `json:"margin_y"`
	ThresholdRatio float64 `json:"threshold_ratio"`

	// Canny thresholds on the binary image.
	CannyLow  float32 `json:"canny_low"`
	CannyHigh float32 `json:"canny_high"`

	// GlyphPadding is the white border added on every side of a glyph.
	GlyphPadding int `json:"glyph_padding"`

	Filter Filter `json:"filter"`
}

// DefaultParams returns the parameters the character classifier was trained
// against.
func DefaultParams() Params {
	return Params{
		Scale: 10,

		MarginX:        0.095,
		MarginY:        0.11,
		ThresholdRatio: 0.75,

		CannyLow:  60,
		CannyHigh: 100,

		GlyphPadding: 20,

		Filter: DefaultFilter(),
	}
}

// WithScale returns a copy of params with a different upscale factor.
func (p Params) WithScale(scale float64) Params {
	p.Scale = scale
	return p
}

// WithFilter returns a copy of params with a custom geometric filter.
func (p Params) WithFilter(f Filter) Params {
	p.Filter = f
	return p
}
