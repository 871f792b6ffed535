package geometry

import (
	"errors"
	"math"
)

// ErrVerticalSegment is returned by Segment.Angle when the slope is undefined.
var ErrVerticalSegment = errors.New("vertical segment has no slope")

// Segment is a line segment between two points in pixel coordinates.
type Segment struct {
	X1, Y1 float64
	X2, Y2 float64
}

// Length returns the Euclidean length of the segment.
func (s Segment) Length() float64 {
	return Point2D{X: s.X1, Y: s.Y1}.Distance(Point2D{X: s.X2, Y: s.Y2})
}

// Angle returns the segment's inclination in whole degrees, round(atan(slope)).
// Halves round to even.
func (s Segment) Angle() (int, error) {
	dx := s.X2 - s.X1
	if dx == 0 {
		return 0, ErrVerticalSegment
	}
	k := (s.Y2 - s.Y1) / dx
	return int(math.RoundToEven(math.Atan(k) * 180 / math.Pi)), nil
}

// Longest returns the segment with the greatest length. The first of several
// equally long segments wins. ok is false when segments is empty.
func Longest(segments []Segment) (longest Segment, ok bool) {
	maxLen := -1.0
	for _, s := range segments {
		if l := s.Length(); l > maxLen {
			maxLen = l
			longest = s
			ok = true
		}
	}
	return longest, ok
}
