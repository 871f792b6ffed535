// Package ocr classifies glyph images and assembles them into plate strings.
package ocr

import (
	"image"

	plateimage "plate-reader/internal/image"

	"gocv.io/x/gocv"
)

// InputSize is the side of the square glyph tensor classifiers receive.
const InputSize = 28

// Classifier maps a prepared glyph to a probability per Alphabet symbol.
// Input is an InputSize x InputSize CV32FC1 Mat in [0,1] with the character
// bright on a dark background. Implementations must be safe for concurrent
// use.
type Classifier interface {
	Classify(input gocv.Mat) ([]float32, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(input gocv.Mat) ([]float32, error)

// Classify calls f.
func (f ClassifierFunc) Classify(input gocv.Mat) ([]float32, error) {
	return f(input)
}

// Prepare turns a padded glyph (dark on white) into classifier input:
// inverted, resized to InputSize and scaled to [0,1].
func Prepare(glyph gocv.Mat) gocv.Mat {
	gray := plateimage.Gray(glyph)
	defer gray.Close()

	// Networks are trained on light strokes over black
	inverted := gocv.NewMat()
	defer inverted.Close()
	gocv.BitwiseNot(gray, &inverted)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(inverted, &resized, image.Pt(InputSize, InputSize), 0, 0, gocv.InterpolationLinear)

	// 8-bit to float in [0,1]
	input := gocv.NewMat()
	resized.ConvertToWithParams(&input, gocv.MatTypeCV32FC1, 1.0/255, 0)
	return input
}

// Distribution returns probabilities that put confidence on index and spread
// the rest evenly, for backends that report a single best guess. A negative
// index gives a uniform distribution.
func Distribution(index int, confidence float32) []float32 {
	probs := make([]float32, AlphabetSize)
	if index < 0 || index >= AlphabetSize {
		for i := range probs {
			probs[i] = 1.0 / float32(AlphabetSize)
		}
		return probs
	}
	confidence = min(max(confidence, 0), 1)
	rest := (1 - confidence) / float32(AlphabetSize-1)
	for i := range probs {
		probs[i] = rest
	}
	probs[index] = confidence
	return probs
}
