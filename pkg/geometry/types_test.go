package geometry

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotationAboutMatchesOpenCV(t *testing.T) {
	// getRotationMatrix2D((50, 20), 90, 1) = [[0, 1, 30], [-1, 0, 70]]
	m := RotationAbout(Point2D{X: 50, Y: 20}, 90).ToMatrix()
	want := [2][3]float64{{0, 1, 30}, {-1, 0, 70}}
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			assert.InDelta(t, want[r][c], m[r][c], 1e-9, "m[%d][%d]", r, c)
		}
	}
}

func TestRotationAboutKeepsCenter(t *testing.T) {
	center := Point2D{X: 120, Y: 40}
	got := RotationAbout(center, 17).Apply(center)
	assert.InDelta(t, center.X, got.X, 1e-9)
	assert.InDelta(t, center.Y, got.Y, 1e-9)
}

func TestInverseRoundTrip(t *testing.T) {
	tr := RotationAbout(Point2D{X: 10, Y: 5}, -5)
	inv, ok := tr.Inverse()
	require.True(t, ok)

	p := Point2D{X: 3, Y: 8}
	back := inv.Apply(tr.Apply(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)
}

func TestApplyRect(t *testing.T) {
	// Tenfold downscale then a row offset, as when mapping a glyph box back
	// from the upscaled plate.
	tr := Translation(0, 10).Compose(Scaling(0.1, 0.1))
	assert.Equal(t, RectInt{X: 30, Y: 20, Width: 10, Height: 40}, tr.ApplyRect(RectInt{X: 300, Y: 100, Width: 100, Height: 400}))

	// A quarter turn about the center of a 10x10 square swaps width and height.
	rot := RotationAbout(Point2D{X: 5, Y: 5}, 90)
	got := rot.ApplyRect(RectInt{X: 2, Y: 4, Width: 6, Height: 2})
	assert.Equal(t, RectInt{X: 4, Y: 2, Width: 2, Height: 6}, got)
}

func TestRectIntConversions(t *testing.T) {
	r := FromRectangle(image.Rect(4, 6, 14, 36))
	assert.Equal(t, RectInt{X: 4, Y: 6, Width: 10, Height: 30}, r)
	assert.Equal(t, image.Rect(4, 6, 14, 36), r.Rectangle())
	assert.Equal(t, 300, r.Area())
	assert.InDelta(t, 3.0, r.Aspect(), 1e-9)
}

func TestRectIntClampTo(t *testing.T) {
	r := RectInt{X: -5, Y: 10, Width: 50, Height: 100}
	assert.Equal(t, RectInt{X: 0, Y: 10, Width: 40, Height: 50}, r.ClampTo(40, 60))
	assert.True(t, RectInt{X: 100, Y: 0, Width: 5, Height: 5}.ClampTo(40, 60).Empty())
}
