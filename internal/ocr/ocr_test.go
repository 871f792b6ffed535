package ocr

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	perrors "plate-reader/internal/errors"
	"plate-reader/internal/segment"
	"plate-reader/internal/testplate"
	"plate-reader/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// glyph returns a padded glyph like the extractor produces: a black bar on
// white.
func glyph(x int) segment.Glyph {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 140, 60, gocv.MatTypeCV8UC1)
	testplate.Fill(img, image.Rect(20, 20, 40, 120), 0)
	return segment.Glyph{Image: img, Box: geometry.RectInt{X: x, Y: 0, Width: 20, Height: 100}}
}

func glyphs(n int) []segment.Glyph {
	out := make([]segment.Glyph, n)
	for i := range out {
		out[i] = glyph(i * 50)
	}
	return out
}

func closeGlyphs(gs []segment.Glyph) {
	for _, g := range gs {
		g.Image.Close()
	}
}

// scripted answers with the given symbols and confidences in call order.
func scripted(symbols string, confidence ...float32) ClassifierFunc {
	call := 0
	return func(input gocv.Mat) ([]float32, error) {
		conf := float32(0.9)
		if call < len(confidence) {
			conf = confidence[call]
		}
		idx := IndexOf(symbols[call : call+1])
		call++
		return Distribution(idx, conf), nil
	}
}

func TestAlphabet(t *testing.T) {
	assert.Equal(t, 36, AlphabetSize)
	s, ok := SymbolAt(10)
	assert.True(t, ok)
	assert.Equal(t, "A", s)
	_, ok = SymbolAt(36)
	assert.False(t, ok)
	assert.Equal(t, 35, IndexOf("z"))
	assert.Equal(t, -1, IndexOf("-"))
	assert.Equal(t, -1, IndexOf("AB"))
}

func TestPrepare(t *testing.T) {
	g := glyph(0)
	defer g.Image.Close()

	input := Prepare(g.Image)
	defer input.Close()

	assert.Equal(t, InputSize, input.Rows())
	assert.Equal(t, InputSize, input.Cols())
	assert.Equal(t, gocv.MatTypeCV32FC1, input.Type())
	// Polarity is inverted: the white pad becomes 0, the bar becomes 1.
	assert.InDelta(t, 0.0, input.GetFloatAt(0, 0), 1e-6)
	assert.InDelta(t, 1.0, input.GetFloatAt(InputSize/2, InputSize/2), 1e-6)
}

func TestDistribution(t *testing.T) {
	probs := Distribution(IndexOf("7"), 0.8)
	require.Len(t, probs, AlphabetSize)
	var sum float32
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
	assert.Equal(t, float32(0.8), probs[7])

	uniform := Distribution(-1, 0.8)
	assert.InDelta(t, 1.0/36, uniform[0], 1e-6)
	assert.Equal(t, uniform[0], uniform[35])
}

func TestAssembleConcatenatesInOrder(t *testing.T) {
	gs := glyphs(6)
	defer closeGlyphs(gs)

	a := NewAssembler(scripted("AB12CD"), DefaultConfidenceFloor)
	result, err := a.Assemble(gs)
	require.NoError(t, err)

	assert.Equal(t, "AB12CD", result.Plate)
	require.Len(t, result.Symbols, 6)
	for i, s := range result.Symbols {
		assert.True(t, s.Accepted)
		assert.Equal(t, i*50, s.Box.X)
		assert.InDelta(t, 0.9, s.Confidence, 1e-6)
	}
}

func TestAssembleDropsLowConfidence(t *testing.T) {
	gs := glyphs(4)
	defer closeGlyphs(gs)

	// The second glyph is rejected and leaves no gap.
	a := NewAssembler(scripted("X7Y8", 0.9, 0.2, 0.3, 0.95), 0.3)
	result, err := a.Assemble(gs)
	require.NoError(t, err)

	assert.Equal(t, "XY8", result.Plate)
	assert.False(t, result.Symbols[1].Accepted)
	assert.Equal(t, "7", result.Symbols[1].Symbol)
	assert.True(t, result.Symbols[2].Accepted, "a probability equal to the floor is kept")
}

func TestAssembleZeroFloorKeepsEverything(t *testing.T) {
	gs := glyphs(3)
	defer closeGlyphs(gs)

	a := NewAssembler(scripted("QRS", 0.05, 0.06, 0.07), 0)
	result, err := a.Assemble(gs)
	require.NoError(t, err)
	assert.Equal(t, "QRS", result.Plate)
	assert.Equal(t, 0.0, a.Floor())
}

func TestAssembleNoGlyphs(t *testing.T) {
	called := false
	a := NewAssembler(ClassifierFunc(func(gocv.Mat) ([]float32, error) {
		called = true
		return nil, nil
	}), DefaultConfidenceFloor)

	result, err := a.Assemble(nil)
	require.NoError(t, err)
	assert.Equal(t, "", result.Plate)
	assert.Empty(t, result.Symbols)
	assert.False(t, called)
}

func TestAssembleSeesPreparedInput(t *testing.T) {
	gs := glyphs(1)
	defer closeGlyphs(gs)

	a := NewAssembler(ClassifierFunc(func(input gocv.Mat) ([]float32, error) {
		assert.Equal(t, InputSize, input.Rows())
		assert.Equal(t, gocv.MatTypeCV32FC1, input.Type())
		return Distribution(IndexOf("K"), 1), nil
	}), DefaultConfidenceFloor)

	result, err := a.Assemble(gs)
	require.NoError(t, err)
	assert.Equal(t, "K", result.Plate)
}

func TestAssembleClassifierFailure(t *testing.T) {
	gs := glyphs(3)
	defer closeGlyphs(gs)

	calls := 0
	a := NewAssembler(ClassifierFunc(func(gocv.Mat) ([]float32, error) {
		calls++
		return nil, errors.New("model crashed")
	}), DefaultConfidenceFloor)

	_, err := a.Assemble(gs)
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrClassifierUnavailable)
	assert.Equal(t, 1, calls, "failures are not retried per glyph")
}

func TestAssembleWrongDistributionLength(t *testing.T) {
	gs := glyphs(1)
	defer closeGlyphs(gs)

	a := NewAssembler(ClassifierFunc(func(gocv.Mat) ([]float32, error) {
		return []float32{1, 0}, nil
	}), DefaultConfidenceFloor)

	_, err := a.Assemble(gs)
	assert.ErrorIs(t, err, perrors.ErrClassifierUnavailable)
}

func TestLoadNetClassifierMissingModel(t *testing.T) {
	_, err := LoadNetClassifier(filepath.Join(t.TempDir(), "chars.onnx"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrClassifierUnavailable)

	_, err = LoadNetClassifier("", "")
	assert.ErrorIs(t, err, perrors.ErrClassifierUnavailable)
}

func TestTensorToPage(t *testing.T) {
	g := glyph(0)
	defer g.Image.Close()
	input := Prepare(g.Image)
	defer input.Close()

	page := tensorToPage(input)
	defer page.Close()

	assert.Equal(t, InputSize*tesseractScale+32, page.Rows())
	assert.Equal(t, gocv.MatTypeCV8UC1, page.Type())
	assert.Equal(t, uint8(255), page.GetUCharAt(0, 0))
	center := InputSize * tesseractScale / 2
	assert.Less(t, page.GetUCharAt(16+center, 16+center), uint8(20))
}

func TestTesseractClassifier(t *testing.T) {
	c, err := NewTesseractClassifier()
	if err != nil {
		t.Skipf("tesseract unavailable: %v", err)
	}
	defer c.Close()

	g := glyph(0)
	defer g.Image.Close()
	input := Prepare(g.Image)
	defer input.Close()

	probs, err := c.Classify(input)
	require.NoError(t, err)
	assert.Len(t, probs, AlphabetSize)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("ab-123 c", "AB123C"))
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("ABC", ""))
	assert.Equal(t, 0.0, Similarity("", "ABC"))

	// One glyph dropped: LCS 5/6, overlap 5/6.
	assert.InDelta(t, 5.0/6, Similarity("AB12C", "AB12CD"), 1e-9)
	// Same characters, wrong order scores below a dropped glyph.
	assert.Less(t, Similarity("DC21BA", "AB12CD"), Similarity("AB12C", "AB12CD"))
}
