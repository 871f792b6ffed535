package ocr

import (
	"fmt"
	"image"
	"strings"
	"sync"

	perrors "plate-reader/internal/errors"
	"plate-reader/pkg/colorutil"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// tesseractScale enlarges the 28 px tensor; Tesseract does poorly on tiny
// glyphs.
const tesseractScale = 4

// TesseractClassifier classifies glyphs with Tesseract in single-character
// mode, restricted to Alphabet. Tesseract reports one symbol and a
// confidence, which is spread into a distribution with Distribution.
type TesseractClassifier struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseractClassifier creates a Tesseract client configured for plates.
func NewTesseractClassifier() (*TesseractClassifier, error) {
	client := gosseract.NewClient()

	// English traineddata covers the 0-9A-Z plate alphabet
	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, perrors.NewClassifierError("tesseract", "failed to set language", err)
	}

	// Plates are not words; keep the dictionary from "correcting" them.
	// A lone "0" must not turn into "O" because "O" is more frequent.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	// PSM 10 = treat the image as a single character
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_CHAR); err != nil {
		client.Close()
		return nil, perrors.NewClassifierError("tesseract", "failed to set PSM", err)
	}
	// Restrict output to symbols the assembler can place
	if err := client.SetWhitelist(Alphabet); err != nil {
		client.Close()
		return nil, perrors.NewClassifierError("tesseract", "failed to set whitelist", err)
	}

	return &TesseractClassifier{client: client}, nil
}

// Close releases Tesseract resources.
func (c *TesseractClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Classify recognizes the single character in input.
func (c *TesseractClassifier) Classify(input gocv.Mat) ([]float32, error) {
	// Undo the classifier preprocessing
	page := tensorToPage(input)
	defer page.Close()

	// Convert to image bytes (PNG format)
	buf, err := gocv.IMEncode(gocv.PNGFileExt, page)
	if err != nil {
		return nil, fmt.Errorf("failed to encode glyph: %w", err)
	}
	defer buf.Close()

	// One client, one image at a time
	c.mu.Lock()
	defer c.mu.Unlock()

	// Set image
	if err := c.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return nil, perrors.NewClassifierError("tesseract", "failed to set image", err)
	}
	// Symbol-level results carry a per-symbol confidence, unlike Text()
	boxes, err := c.client.GetBoundingBoxes(gosseract.RIL_SYMBOL)
	if err != nil {
		return nil, perrors.NewClassifierError("tesseract", "recognition failed", err)
	}

	// Keep the most confident symbol in the alphabet. No symbol leaves
	// best at -1, which Distribution turns into a uniform spread.
	best, confidence := -1, 0.0
	for _, box := range boxes {
		idx := IndexOf(strings.TrimSpace(box.Word))
		if idx >= 0 && box.Confidence > confidence {
			best, confidence = idx, box.Confidence
		}
	}
	return Distribution(best, float32(confidence/100)), nil
}

// tensorToPage converts classifier input back to a dark-on-light 8-bit image
// with a margin, the form Tesseract expects.
func tensorToPage(input gocv.Mat) gocv.Mat {
	bytes := gocv.NewMat()
	defer bytes.Close()
	// v' = 255 - 255*v undoes the inversion and scaling.
	input.ConvertToWithParams(&bytes, gocv.MatTypeCV8UC1, -255, 255)

	// Enlarge with cubic interpolation to keep stroke edges smooth
	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(bytes, &scaled, image.Point{}, tesseractScale, tesseractScale, gocv.InterpolationCubic)

	// Tesseract finds nothing when strokes touch the image edge
	page := gocv.NewMat()
	gocv.CopyMakeBorder(scaled, &page, 16, 16, 16, 16, gocv.BorderConstant, colorutil.White)
	return page
}
