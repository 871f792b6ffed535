package image

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"plate-reader/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	img.Set(3, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeProducesBGR(t *testing.T) {
	m, err := Decode(samplePNG(t))
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 4, m.Rows())
	assert.Equal(t, 8, m.Cols())
	assert.Equal(t, 3, m.Channels())
	assert.Equal(t, uint8(50), m.GetUCharAt(0, 0))
	assert.Equal(t, uint8(100), m.GetUCharAt(0, 1))
	assert.Equal(t, uint8(200), m.GetUCharAt(0, 2))
	assert.Equal(t, uint8(30), m.GetUCharAt(2, 3*3+0))
	assert.Equal(t, uint8(10), m.GetUCharAt(2, 3*3+2))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(nil)
	assert.Error(t, err)
	_, err = Decode([]byte("not an image"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plate.png")
	require.NoError(t, os.WriteFile(path, samplePNG(t), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, 8, m.Cols())

	_, err = Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestCropRegionClamps(t *testing.T) {
	src := gocv.NewMatWithSize(20, 30, gocv.MatTypeCV8UC3)
	defer src.Close()

	crop, err := CropRegion(src, geometry.RectInt{X: 25, Y: -5, Width: 10, Height: 10})
	require.NoError(t, err)
	defer crop.Close()
	assert.Equal(t, 5, crop.Cols())
	assert.Equal(t, 5, crop.Rows())

	_, err = CropRegion(src, geometry.RectInt{X: 40, Y: 0, Width: 5, Height: 5})
	assert.Error(t, err)
}

func TestGrayAndRoundTrip(t *testing.T) {
	m, err := Decode(samplePNG(t))
	require.NoError(t, err)
	defer m.Close()

	gray := Gray(m)
	defer gray.Close()
	assert.Equal(t, 1, gray.Channels())

	again := Gray(gray)
	defer again.Close()
	assert.Equal(t, 1, again.Channels())
	assert.Equal(t, gray.GetUCharAt(1, 1), again.GetUCharAt(1, 1))

	encoded, err := EncodePNG(m)
	require.NoError(t, err)
	back, err := Decode(encoded)
	require.NoError(t, err)
	defer back.Close()
	assert.Equal(t, m.ToBytes(), back.ToBytes())
}
