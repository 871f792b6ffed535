package segment

import (
	"image"
	"math"

	plateimage "plate-reader/internal/image"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// Upscale resizes img by scale on both axes with linear interpolation.
// Area and padding constants downstream assume this resolution.
func Upscale(img gocv.Mat, scale float64) gocv.Mat {
	size := image.Pt(int(float64(img.Cols())*scale), int(float64(img.Rows())*scale))
	dst := gocv.NewMat()
	gocv.Resize(img, &dst, size, 0, 0, gocv.InterpolationLinear)
	return dst
}

// Interior returns the part of a w x h image left after removing the
// horizontal and vertical margins. Margins are rounded half to even. When the
// margins consume the image the whole image is returned.
func Interior(w, h int, marginX, marginY float64) image.Rectangle {
	mx := int(math.RoundToEven(float64(w) * marginX))
	my := int(math.RoundToEven(float64(h) * marginY))
	if w-2*mx <= 0 || h-2*my <= 0 {
		return image.Rect(0, 0, w, h)
	}
	return image.Rect(mx, my, w-mx, h-my)
}

// EstimateThreshold derives a binarization cutoff from the mean intensity of
// the plate interior. Frame and border pixels near the edges are excluded.
func EstimateThreshold(img gocv.Mat, p Params) int {
	gray := plateimage.Gray(img)
	defer gray.Close()

	// The interior is mostly background, so its mean sits near the
	// background level; a fraction of it separates the darker strokes
	mean := InteriorMean(gray, p.MarginX, p.MarginY)
	return int(math.RoundToEven(mean * p.ThresholdRatio))
}

// InteriorMean returns the mean of a single-channel image inside Interior.
func InteriorMean(gray gocv.Mat, marginX, marginY float64) float64 {
	region := gray.Region(Interior(gray.Cols(), gray.Rows(), marginX, marginY))
	defer region.Close()

	// Region views are not continuous.
	interior := region.Clone()
	defer interior.Close()

	// gonum wants float64 samples
	pixels := interior.ToBytes()
	values := make([]float64, len(pixels))
	for i, v := range pixels {
		values[i] = float64(v)
	}
	return stat.Mean(values, nil)
}
