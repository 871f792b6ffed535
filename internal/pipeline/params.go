// Package pipeline reads the plate string from a plate crop: deskew, border
// crop, normalization, segmentation and classification.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"plate-reader/internal/deskew"
	"plate-reader/internal/ocr"
	"plate-reader/internal/segment"
)

// Params aggregates the tunables of every stage.
type Params struct {
	Deskew  deskew.Params  `json:"deskew"`
	Segment segment.Params `json:"segment"`

	// ConfidenceFloor is the minimum classifier probability for a symbol to
	// enter the plate. 0 keeps every symbol.
	ConfidenceFloor float64 `json:"confidence_floor"`

	// Annotate keeps a copy of the normalized plate with boxes drawn on it.
	Annotate bool `json:"annotate"`
}

// DefaultParams returns the defaults of every stage.
func DefaultParams() Params {
	return Params{
		Deskew:          deskew.DefaultParams(),
		Segment:         segment.DefaultParams(),
		ConfidenceFloor: ocr.DefaultConfidenceFloor,
	}
}

// WithConfidenceFloor returns a copy of params with a different floor.
func (p Params) WithConfidenceFloor(floor float64) Params {
	p.ConfidenceFloor = floor
	return p
}

// WithAnnotate returns a copy of params with annotation switched on or off.
func (p Params) WithAnnotate(annotate bool) Params {
	p.Annotate = annotate
	return p
}

// Validate checks that params can drive the pipeline.
func (p Params) Validate() error {
	if p.Segment.Scale <= 0 {
		return fmt.Errorf("scale must be positive")
	}
	if p.Segment.ThresholdRatio <= 0 {
		return fmt.Errorf("threshold ratio must be positive")
	}
	if p.Segment.MarginX < 0 || p.Segment.MarginX >= 0.5 || p.Segment.MarginY < 0 || p.Segment.MarginY >= 0.5 {
		return fmt.Errorf("margins must be in [0, 0.5)")
	}
	if p.Segment.GlyphPadding < 0 {
		return fmt.Errorf("glyph padding must not be negative")
	}
	if p.ConfidenceFloor < 0 || p.ConfidenceFloor > 1 {
		return fmt.Errorf("confidence floor must be in [0, 1]")
	}
	if p.Deskew.HoughRho <= 0 || p.Deskew.HoughTheta <= 0 || p.Deskew.HoughVotes <= 0 {
		return fmt.Errorf("hough resolution and vote threshold must be positive")
	}
	return nil
}

// LoadParams reads a JSON file over the defaults. Fields missing from the
// file keep their default value.
func LoadParams(path string) (Params, error) {
	p := DefaultParams()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("invalid params file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid params file %s: %w", path, err)
	}
	return p, nil
}

// SaveToFile writes params as indented JSON.
func (p Params) SaveToFile(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
