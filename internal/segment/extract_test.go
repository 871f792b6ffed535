package segment

import (
	"image"
	"testing"

	perrors "plate-reader/internal/errors"
	"plate-reader/internal/testplate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// levelPlate returns the standard synthetic plate with its bands removed and
// upscaled, as the extractor sees it after deskew and crop.
func levelPlate(t *testing.T) gocv.Mat {
	t.Helper()
	plate := testplate.Draw(testplate.Standard())
	defer plate.Close()

	crop := plate.Region(image.Rect(0, 10, 240, 70))
	defer crop.Close()
	return Upscale(crop, DefaultParams().Scale)
}

func TestExtractSyntheticPlate(t *testing.T) {
	img := levelPlate(t)
	defer img.Close()

	p := DefaultParams()
	threshold := EstimateThreshold(img, p)
	assert.InDelta(t, 141, threshold, 6)

	ext, err := Extract(img, threshold, p)
	require.NoError(t, err)
	defer ext.Close()

	require.Len(t, ext.Glyphs, 6)
	for i, g := range ext.Glyphs {
		wantX := (30 + i*35) * 10
		assert.InDelta(t, wantX, g.Box.X, 8, "glyph %d", i)
		assert.InDelta(t, 100, g.Box.Width, 10, "glyph %d", i)
		assert.InDelta(t, 400, g.Box.Height, 10, "glyph %d", i)
		assert.Equal(t, RuleTall, g.Rule)

		assert.Equal(t, g.Box.Width+2*p.GlyphPadding, g.Image.Cols())
		assert.Equal(t, g.Box.Height+2*p.GlyphPadding, g.Image.Rows())
		assert.Equal(t, 1, g.Image.Channels())
		assert.Equal(t, uint8(255), g.Image.GetUCharAt(0, 0))
		assert.Equal(t, uint8(255), g.Image.GetUCharAt(g.Image.Rows()-1, g.Image.Cols()-1))
		// The middle of a bar is black in the binary crop.
		assert.Equal(t, uint8(0), g.Image.GetUCharAt(g.Image.Rows()/2, g.Image.Cols()/2))
	}

	assert.Equal(t, img.Rows(), ext.Binary.Rows())
	assert.Equal(t, img.Cols(), ext.Edges.Cols())
}

func TestExtractLeftToRight(t *testing.T) {
	// Bars drawn right to left, with uneven heights, still come out sorted.
	img := testplate.Blank(2400, 600, 255)
	defer img.Close()
	for i, x := range []int{2000, 1500, 1100, 700, 300} {
		testplate.Fill(img, image.Rect(x, 100, x+100, 450+i*10), 0)
	}

	ext, err := Extract(img, 128, DefaultParams())
	require.NoError(t, err)
	defer ext.Close()

	require.Len(t, ext.Glyphs, 5)
	for i := 1; i < len(ext.Glyphs); i++ {
		assert.LessOrEqual(t, ext.Glyphs[i-1].Box.X, ext.Glyphs[i].Box.X)
	}
	for i := 1; i < len(ext.Candidates); i++ {
		assert.LessOrEqual(t, ext.Candidates[i-1].Box.X, ext.Candidates[i].Box.X)
	}
}

func TestExtractRejectsNoise(t *testing.T) {
	img := testplate.Blank(2400, 600, 255)
	defer img.Close()
	testplate.Fill(img, image.Rect(300, 100, 400, 500), 0)   // character
	testplate.Fill(img, image.Rect(800, 280, 840, 320), 0)   // screw hole
	testplate.Fill(img, image.Rect(100, 560, 2300, 580), 0)  // frame edge
	testplate.Fill(img, image.Rect(1200, 100, 2100, 500), 0) // joined characters

	ext, err := Extract(img, 128, DefaultParams())
	require.NoError(t, err)
	defer ext.Close()

	require.Len(t, ext.Glyphs, 1)
	assert.InDelta(t, 300, ext.Glyphs[0].Box.X, 3)
	assert.GreaterOrEqual(t, len(ext.Candidates), 4)

	accepted := 0
	for _, c := range ext.Candidates {
		if c.Accepted {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestExtractAllWhite(t *testing.T) {
	img := testplate.Blank(2400, 600, 255)
	defer img.Close()

	p := DefaultParams()
	ext, err := Extract(img, EstimateThreshold(img, p), p)
	require.NoError(t, err)
	defer ext.Close()

	assert.Empty(t, ext.Glyphs)
	assert.Empty(t, ext.Candidates)
}

func TestExtractEmptyImage(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()

	_, err := Extract(empty, 100, DefaultParams())
	assert.ErrorIs(t, err, perrors.ErrSegmentation)
}

func TestAnnotate(t *testing.T) {
	img := levelPlate(t)
	defer img.Close()

	p := DefaultParams()
	ext, err := Extract(img, EstimateThreshold(img, p), p)
	require.NoError(t, err)
	defer ext.Close()

	annotated := Annotate(img, ext)
	defer annotated.Close()

	assert.Equal(t, img.Rows(), annotated.Rows())
	assert.Equal(t, img.Cols(), annotated.Cols())
	assert.Equal(t, 3, annotated.Channels())
	assert.Greater(t, changedPixels(img, annotated), 0)

	// The input is left untouched.
	again := Annotate(img, nil)
	defer again.Close()
	assert.Equal(t, img.ToBytes(), again.ToBytes())
}

func TestDrawColumnGuides(t *testing.T) {
	img := testplate.Blank(100, 20, 255)
	defer img.Close()
	before := img.Clone()
	defer before.Close()

	DrawColumnGuides(&img, 0.25)
	assert.Greater(t, changedPixels(before, img), 0)
	// First guide at x=25 is green.
	assert.Less(t, img.GetUCharAt(10, 25*3+0), uint8(128))
	assert.Greater(t, img.GetUCharAt(10, 25*3+1), uint8(200))
	assert.Less(t, img.GetUCharAt(10, 25*3+2), uint8(128))

	untouched := testplate.Blank(100, 20, 255)
	defer untouched.Close()
	DrawColumnGuides(&untouched, 0)
	assert.Equal(t, 0, changedPixels(before, untouched))
}

func TestPutLabel(t *testing.T) {
	img := testplate.Blank(200, 60, 255)
	defer img.Close()
	before := img.Clone()
	defer before.Close()

	PutLabel(&img, 0, 5, "plate 0.91")
	assert.Greater(t, changedPixels(before, img), 0)
}

func changedPixels(a, b gocv.Mat) int {
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)
	return gocv.CountNonZero(gray)
}
