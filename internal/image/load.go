// Package image provides plate crop loading and conversion to OpenCV matrices.
package image

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"plate-reader/pkg/geometry"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Load decodes the image at path into a 3-channel BGR Mat.
func Load(path string) (gocv.Mat, error) {
	file, err := os.Open(path)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return FromImage(img)
}

// Decode decodes encoded image bytes (PNG, JPEG, GIF, TIFF, BMP, WebP) into a
// 3-channel BGR Mat.
func Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), fmt.Errorf("empty image data")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to decode image: %w", err)
	}
	return FromImage(img)
}

// CropRegion copies the part of src inside box, clamped to the image. Used to
// cut a plate out of a full frame given the detector's bounding box.
func CropRegion(src gocv.Mat, box geometry.RectInt) (gocv.Mat, error) {
	clamped := box.ClampTo(src.Cols(), src.Rows())
	if clamped.Empty() {
		return gocv.NewMat(), fmt.Errorf("box %+v lies outside the %dx%d image", box, src.Cols(), src.Rows())
	}
	region := src.Region(clamped.Rectangle())
	defer region.Close()
	return region.Clone(), nil
}

// Gray returns a single-channel copy of m.
func Gray(m gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	switch m.Channels() {
	case 1:
		m.CopyTo(&gray)
	case 4:
		gocv.CvtColor(m, &gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(m, &gray, gocv.ColorBGRToGray)
	}
	return gray
}

// EncodePNG encodes m as PNG bytes.
func EncodePNG(m gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()
	return bytes.Clone(buf.GetBytes()), nil
}
