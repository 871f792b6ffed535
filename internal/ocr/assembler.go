package ocr

import (
	"errors"
	"fmt"
	"strings"

	perrors "plate-reader/internal/errors"
	"plate-reader/internal/segment"
	"plate-reader/pkg/geometry"

	"gonum.org/v1/gonum/floats"
)

// DefaultConfidenceFloor is the minimum probability for a symbol to be kept.
const DefaultConfidenceFloor = 0.3

// Symbol is the classification of one glyph.
type Symbol struct {
	Symbol     string  `json:"symbol"`
	Confidence float64 `json:"confidence"`
	Accepted   bool    `json:"accepted"`
	// Box is on the normalized plate; SourceBox is the same glyph on the
	// input crop, filled in by the pipeline.
	Box       geometry.RectInt `json:"box"`
	SourceBox geometry.RectInt `json:"source_box"`
}

// Assembly is the plate string plus every classified glyph, left to right.
type Assembly struct {
	Plate   string   `json:"plate"`
	Symbols []Symbol `json:"symbols"`
}

// Assembler classifies glyphs and joins the confident ones into a plate.
type Assembler struct {
	classifier Classifier
	floor      float64
}

// NewAssembler returns an Assembler using c. Symbols with probability below
// floor are dropped; a floor of 0 keeps every symbol.
func NewAssembler(c Classifier, floor float64) *Assembler {
	return &Assembler{classifier: c, floor: floor}
}

// Floor returns the confidence floor.
func (a *Assembler) Floor() float64 {
	return a.floor
}

// Assemble classifies glyphs in order. A dropped glyph leaves no gap, so its
// neighbours end up adjacent in the plate. Any classifier failure aborts the
// whole plate.
func (a *Assembler) Assemble(glyphs []segment.Glyph) (*Assembly, error) {
	result := &Assembly{Symbols: make([]Symbol, 0, len(glyphs))}
	var plate strings.Builder

	for i, g := range glyphs {
		probs, err := a.classify(g)
		if err != nil {
			// Keep the backend's own classification of the failure
			var ce *perrors.ClassifierError
			if errors.As(err, &ce) {
				return nil, err
			}
			return nil, perrors.NewClassifierError("classifier", fmt.Sprintf("glyph %d", i), err)
		}
		if len(probs) != AlphabetSize {
			return nil, perrors.NewClassifierError("classifier",
				fmt.Sprintf("glyph %d: expected %d probabilities, got %d", i, AlphabetSize, len(probs)), nil)
		}

		values := make([]float64, len(probs))
		for j, p := range probs {
			values[j] = float64(p)
		}
		// Ties go to the lowest index
		best := floats.MaxIdx(values)
		symbol, _ := SymbolAt(best)

		s := Symbol{
			Symbol:     symbol,
			Confidence: values[best],
			Accepted:   values[best] >= a.floor,
			Box:        g.Box,
		}
		// Rejected symbols stay in Symbols for review but not in the plate
		if s.Accepted {
			plate.WriteString(symbol)
		}
		result.Symbols = append(result.Symbols, s)
	}

	result.Plate = plate.String()
	return result, nil
}

func (a *Assembler) classify(g segment.Glyph) ([]float32, error) {
	input := Prepare(g.Image)
	defer input.Close()
	return a.classifier.Classify(input)
}
