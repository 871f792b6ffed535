package deskew

import (
	"fmt"
	"image"
	"image/color"

	perrors "plate-reader/internal/errors"
	"plate-reader/pkg/colorutil"

	"gocv.io/x/gocv"
)

// RowRange is a half-open span of rows, [Upper, Lower).
type RowRange struct {
	Upper int `json:"upper"`
	Lower int `json:"lower"`
}

// Height returns the number of rows in the range.
func (r RowRange) Height() int {
	return r.Lower - r.Upper
}

// CropBorder trims the rows above the first and below the last content row.
// A row holds content when its leftmost or its rightmost pixel differs from
// fill in every channel. The result is a full-width copy.
func CropBorder(img gocv.Mat, fill color.RGBA) (gocv.Mat, RowRange, error) {
	if img.Empty() {
		return gocv.NewMat(), RowRange{}, perrors.NewSegmentationError(perrors.StageInput, "empty image", nil)
	}

	rows := ContentRows(img, fill)
	if rows.Height() <= 0 {
		return gocv.NewMat(), rows, perrors.NewSegmentationError(perrors.StageCrop,
			fmt.Sprintf("no content rows in %dx%d image (range %d..%d)", img.Cols(), img.Rows(), rows.Upper, rows.Lower), nil)
	}

	region := img.Region(image.Rect(0, rows.Upper, img.Cols(), rows.Lower))
	defer region.Close()
	return region.Clone(), rows, nil
}

// ContentRows scans from the top and from the bottom for content rows. When
// there are none, Upper is the image height and Lower is 0.
func ContentRows(img gocv.Mat, fill color.RGBA) RowRange {
	h := img.Rows()
	upper := h
	for y := 0; y < h; y++ {
		if rowHasContent(img, y, fill) {
			upper = y
			break
		}
	}
	// Rows below upper may be empty too, so scan again from the bottom
	lower := 0
	for y := h - 1; y >= 0; y-- {
		if rowHasContent(img, y, fill) {
			lower = y + 1
			break
		}
	}
	return RowRange{Upper: upper, Lower: lower}
}

func rowHasContent(img gocv.Mat, y int, fill color.RGBA) bool {
	// Only the outermost columns matter: rotation fill enters from the sides
	last := img.Cols() - 1
	return differsInAllChannels(img, y, 0, fill) || differsInAllChannels(img, y, last, fill)
}

func differsInAllChannels(img gocv.Mat, y, x int, fill color.RGBA) bool {
	ch := img.Channels()
	if ch == 1 {
		return img.GetUCharAt(y, x) != fill.R
	}
	bgr := colorutil.BGR(fill)
	for c := 0; c < 3; c++ {
		if img.GetUCharAt(y, x*ch+c) == bgr[c] {
			return false
		}
	}
	return true
}
