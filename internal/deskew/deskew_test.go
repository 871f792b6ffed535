package deskew

import (
	"image"
	"testing"

	perrors "plate-reader/internal/errors"
	"plate-reader/internal/testplate"
	"plate-reader/pkg/colorutil"
	"plate-reader/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestEstimateSkewSyntheticPlate(t *testing.T) {
	spec := testplate.Standard()
	spec.Angle = 5
	plate := testplate.Draw(spec)
	defer plate.Close()

	angle, err := EstimateSkew(plate, DefaultParams())
	require.NoError(t, err)
	assert.InDelta(t, -5, angle, 2)
}

func TestDetectSegmentsKeepsBandEdgeWhole(t *testing.T) {
	spec := testplate.Standard()
	spec.Angle = 5
	plate := testplate.Draw(spec)
	defer plate.Close()

	longest, ok := geometry.Longest(DetectSegments(plate, DefaultParams()))
	require.True(t, ok)
	// Longer than any bar edge, and close to horizontal.
	assert.Greater(t, longest.Length(), 60.0)
	angle, err := longest.Angle()
	require.NoError(t, err)
	assert.InDelta(t, -5, angle, 2)
}

func TestEstimateSkewLevelPlate(t *testing.T) {
	plate := testplate.Draw(testplate.Standard())
	defer plate.Close()

	angle, err := EstimateSkew(plate, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 0, angle)
}

func TestEstimateSkewNoEdges(t *testing.T) {
	blank := testplate.Blank(200, 60, 128)
	defer blank.Close()

	_, err := EstimateSkew(blank, DefaultParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrSegmentation)

	var seg *perrors.SegmentationError
	require.ErrorAs(t, err, &seg)
	assert.Equal(t, perrors.StageSkew, seg.Stage)
}

func TestEstimateSkewVerticalLine(t *testing.T) {
	img := testplate.Blank(100, 100, 255)
	defer img.Close()
	testplate.Fill(img, image.Rect(40, 0, 60, 100), 0)

	_, err := EstimateSkew(img, DefaultParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrSegmentation)
	assert.ErrorIs(t, err, geometry.ErrVerticalSegment)
}

func TestEstimateSkewEmptyImage(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()

	_, err := EstimateSkew(empty, DefaultParams())
	assert.ErrorIs(t, err, perrors.ErrSegmentation)
}

func TestRotateZeroIsIdentity(t *testing.T) {
	plate := testplate.Draw(testplate.Standard())
	defer plate.Close()

	same := Rotate(plate, 0, colorutil.BorderFill)
	defer same.Close()
	assert.Equal(t, plate.ToBytes(), same.ToBytes())
}

func TestRotateRoundTrip(t *testing.T) {
	plate := testplate.Draw(testplate.Standard())
	defer plate.Close()

	there := Rotate(plate, 7, colorutil.BorderFill)
	defer there.Close()
	back := Rotate(there, -7, colorutil.BorderFill)
	defer back.Close()

	require.Equal(t, plate.Rows(), back.Rows())
	require.Equal(t, plate.Cols(), back.Cols())

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(plate, back, &diff)

	// Corners are clipped by the first rotation; compare the interior only.
	interior := diff.Region(image.Rect(30, 15, 210, 65))
	defer interior.Close()
	mean := interior.Mean()
	assert.Less(t, mean.Val1, 20.0)
	assert.Less(t, mean.Val2, 20.0)
	assert.Less(t, mean.Val3, 20.0)
}

func TestRotateFillsExposedCorners(t *testing.T) {
	white := testplate.Blank(120, 40, 255)
	defer white.Close()

	rotated := Rotate(white, 20, colorutil.BorderFill)
	defer rotated.Close()

	assert.Equal(t, uint8(0), rotated.GetUCharAt(0, 0))
	assert.Equal(t, uint8(255), rotated.GetUCharAt(20, 60*3))
}

func TestCropBorderRemovesBands(t *testing.T) {
	plate := testplate.Draw(testplate.Standard())
	defer plate.Close()

	cropped, rows, err := CropBorder(plate, colorutil.BorderFill)
	require.NoError(t, err)
	defer cropped.Close()

	assert.Equal(t, RowRange{Upper: 10, Lower: 70}, rows)
	assert.Equal(t, 60, cropped.Rows())
	assert.Equal(t, plate.Cols(), cropped.Cols())
}

func TestCropBorderIdempotent(t *testing.T) {
	spec := testplate.Standard()
	spec.Angle = 5
	plate := testplate.Draw(spec)
	defer plate.Close()

	level := Rotate(plate, -5, colorutil.BorderFill)
	defer level.Close()

	once, _, err := CropBorder(level, colorutil.BorderFill)
	require.NoError(t, err)
	defer once.Close()

	twice, rows, err := CropBorder(once, colorutil.BorderFill)
	require.NoError(t, err)
	defer twice.Close()

	assert.Equal(t, RowRange{Upper: 0, Lower: once.Rows()}, rows)
	assert.Equal(t, once.ToBytes(), twice.ToBytes())
}

func TestCropBorderAllBlack(t *testing.T) {
	black := testplate.Blank(50, 20, 0)
	defer black.Close()

	_, rows, err := CropBorder(black, colorutil.BorderFill)
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrSegmentation)
	assert.Equal(t, RowRange{Upper: 20, Lower: 0}, rows)
}

// A black frame on all four sides leaves both corner columns at the fill
// value on every row, so no row counts as content.
func TestCropBorderFullFrame(t *testing.T) {
	spec := testplate.Standard()
	plate := testplate.Draw(spec)
	defer plate.Close()
	testplate.Fill(plate, image.Rect(0, 0, spec.Band, spec.Height), 0)
	testplate.Fill(plate, image.Rect(spec.Width-spec.Band, 0, spec.Width, spec.Height), 0)

	cropped, _, err := CropBorder(plate, colorutil.BorderFill)
	defer cropped.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrSegmentation)
	var seg *perrors.SegmentationError
	require.ErrorAs(t, err, &seg)
	assert.Equal(t, perrors.StageCrop, seg.Stage)
}

func TestContentRowsEitherCorner(t *testing.T) {
	img := testplate.Blank(30, 10, 0)
	defer img.Close()

	// Only the rightmost pixel of row 3 and the leftmost of row 6 are lit.
	for c := 0; c < 3; c++ {
		img.SetUCharAt(3, 29*3+c, 200)
		img.SetUCharAt(6, c, 200)
	}
	// A pixel lit in only two channels is not content.
	img.SetUCharAt(8, 0, 200)
	img.SetUCharAt(8, 1, 200)

	assert.Equal(t, RowRange{Upper: 3, Lower: 7}, ContentRows(img, colorutil.BorderFill))
}

func TestContentRowsGray(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 5, 4, gocv.MatTypeCV8UC1)
	defer img.Close()
	img.SetUCharAt(2, 3, 90)

	assert.Equal(t, RowRange{Upper: 2, Lower: 3}, ContentRows(img, colorutil.BorderFill))
}

func TestParamsModifiers(t *testing.T) {
	p := DefaultParams().WithCanny(50, 150).WithHough(10, 20, 3)
	assert.Equal(t, float32(50), p.CannyLow)
	assert.Equal(t, float32(150), p.CannyHigh)
	assert.Equal(t, 10, p.HoughVotes)
	assert.Equal(t, float32(20), p.MinLineLength)
	assert.Equal(t, float32(3), p.MaxLineGap)
	assert.Equal(t, DefaultParams().HoughTheta, p.HoughTheta)
}
