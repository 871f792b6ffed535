package segment

import (
	"image"
	"math"

	"plate-reader/pkg/colorutil"

	"gocv.io/x/gocv"
)

// Annotate returns a copy of img with every contour outlined in green and
// every accepted box in red. It is for display only.
func Annotate(img gocv.Mat, ext *Extraction) gocv.Mat {
	out := gocv.NewMat()
	if img.Channels() == 1 {
		gocv.CvtColor(img, &out, gocv.ColorGrayToBGR)
	} else {
		img.CopyTo(&out)
	}
	if ext == nil {
		return out
	}

	outlines := make([][]image.Point, 0, len(ext.Candidates))
	for _, c := range ext.Candidates {
		if c.Accepted {
			gocv.Rectangle(&out, c.Box.Rectangle(), colorutil.Red, 2)
		}
		if len(c.Outline) > 0 {
			outlines = append(outlines, c.Outline)
		}
	}
	if len(outlines) > 0 {
		pv := gocv.NewPointsVectorFromPoints(outlines)
		defer pv.Close()
		gocv.DrawContours(&out, pv, -1, colorutil.Green, 1)
	}
	return out
}

// DrawColumnGuides draws vertical lines every fraction*width pixels, a quick
// check of character pitch against the plate width.
func DrawColumnGuides(img *gocv.Mat, fraction float64) {
	width, height := img.Cols(), img.Rows()
	step := int(math.RoundToEven(float64(width) * fraction))
	if step <= 0 {
		return
	}
	for pos := step; pos < width; pos += step {
		gocv.Line(img, image.Pt(pos, 0), image.Pt(pos, height), colorutil.Green, 1)
	}
}

// PutLabel draws label on a filled red box with its baseline at (left, top).
// top is pushed down when the text would leave the image.
func PutLabel(img *gocv.Mat, top, left int, label string) {
	size, baseline := gocv.GetTextSizeWithBaseline(label, gocv.FontHersheySimplex, 0.5, 1)
	top = max(top, size.Y)

	box := image.Rect(
		left, top-int(math.RoundToEven(1.5*float64(size.Y))),
		left+int(math.RoundToEven(1.5*float64(size.X))), top+baseline,
	)
	gocv.Rectangle(img, box, colorutil.Red, -1)
	gocv.PutText(img, label, image.Pt(left, top), gocv.FontHersheySimplex, 0.75, colorutil.Black, 2)
}
