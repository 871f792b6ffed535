package deskew

import (
	"fmt"

	plateimage "plate-reader/internal/image"
	perrors "plate-reader/internal/errors"
	"plate-reader/pkg/geometry"

	"gocv.io/x/gocv"
)

// EstimateSkew returns the rotation, in whole degrees, that levels the longest
// straight edge in img. The longest segment is assumed to be the plate's
// baseline or frame edge; a long diagonal scratch will mislead it.
func EstimateSkew(img gocv.Mat, p Params) (int, error) {
	if img.Empty() {
		return 0, perrors.NewSegmentationError(perrors.StageInput, "empty image", nil)
	}

	// Pick the longest segment as the reference edge
	segments := DetectSegments(img, p)
	longest, ok := geometry.Longest(segments)
	if !ok {
		return 0, perrors.NewSegmentationError(perrors.StageSkew, "no line segments found", nil)
	}

	angle, err := longest.Angle()
	if err != nil {
		return 0, perrors.NewSegmentationError(perrors.StageSkew,
			fmt.Sprintf("dominant line %+v is vertical", longest), err)
	}
	return angle, nil
}

// DetectSegments runs Canny and the probabilistic Hough transform over img and
// returns every segment found.
func DetectSegments(img gocv.Mat, p Params) []geometry.Segment {
	gray := plateimage.Gray(img)
	defer gray.Close()

	// High Canny thresholds keep only strong edges: plate border and
	// character strokes, not paint texture
	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, p.CannyLow, p.CannyHigh)

	// Probabilistic Hough returns finite segments, so lengths can be compared
	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLinesPWithParams(edges, &lines, p.HoughRho, p.HoughTheta, p.HoughVotes, p.MinLineLength, p.MaxLineGap)

	return segmentsFromLines(lines)
}

// segmentsFromLines reads the Nx1 CV32SC4 output of HoughLinesP.
func segmentsFromLines(lines gocv.Mat) []geometry.Segment {
	if lines.Empty() {
		return nil
	}
	segments := make([]geometry.Segment, 0, lines.Rows())
	for i := 0; i < lines.Rows(); i++ {
		v := lines.GetVeciAt(i, 0)
		if len(v) < 4 {
			continue
		}
		segments = append(segments, geometry.Segment{
			X1: float64(v[0]), Y1: float64(v[1]),
			X2: float64(v[2]), Y2: float64(v[3]),
		})
	}
	return segments
}
