package segment

import (
	"plate-reader/pkg/geometry"
)

// Rule names.
const (
	RuleTall  = "tall"
	RuleBlock = "block"
)

// Rule accepts a bounding box by its aspect (H/W) and its area relative to
// the whole image. Area bounds are divisors: a box passes the lower bound
// when its area exceeds imageArea/MinAreaDivisor. Zero disables a bound.
type Rule struct {
	Name string `json:"name"`

	MinAspect          float64 `json:"min_aspect"`
	MinAspectInclusive bool    `json:"min_aspect_inclusive"`

	MinAreaDivisor   float64 `json:"min_area_divisor"`
	MinAreaInclusive bool    `json:"min_area_inclusive"`
	MaxAreaDivisor   float64 `json:"max_area_divisor"` // exclusive
}

// Shape is what the filter looks at for one bounding box.
type Shape struct {
	Aspect float64
	Area   float64
}

// ShapeOf returns the shape of box.
func ShapeOf(box geometry.RectInt) Shape {
	return Shape{Aspect: box.Aspect(), Area: float64(box.Area())}
}

// Match reports whether s satisfies the rule in an image of imageArea pixels.
func (r Rule) Match(s Shape, imageArea float64) bool {
	if r.MinAspectInclusive {
		if s.Aspect < r.MinAspect {
			return false
		}
	} else if s.Aspect <= r.MinAspect {
		return false
	}

	if r.MinAreaDivisor > 0 {
		lo := imageArea / r.MinAreaDivisor
		if r.MinAreaInclusive {
			if s.Area < lo {
				return false
			}
		} else if s.Area <= lo {
			return false
		}
	}

	if r.MaxAreaDivisor > 0 && s.Area >= imageArea/r.MaxAreaDivisor {
		return false
	}
	return true
}

// Filter is an ordered decision table; a box is a character when any rule
// matches it.
type Filter []Rule

// DefaultFilter accepts tall thin shapes (such as "1") and moderately sized
// shapes at least roughly square. Everything else is frame, screw holes,
// noise or several characters joined together.
func DefaultFilter() Filter {
	return Filter{
		{
			Name:               RuleTall,
			MinAspect:          3,
			MinAspectInclusive: true,
			MinAreaDivisor:     72,
			MinAreaInclusive:   true,
		},
		{
			Name:           RuleBlock,
			MinAspect:      0.75,
			MinAreaDivisor: 36,
			MaxAreaDivisor: 4,
		},
	}
}

// Accept returns the name of the first matching rule.
func (f Filter) Accept(s Shape, imageArea float64) (string, bool) {
	for _, r := range f {
		if r.Match(s, imageArea) {
			return r.Name, true
		}
	}
	return "", false
}

// Only returns the rules of f named in names, in f's order.
func (f Filter) Only(names ...string) Filter {
	keep := make(Filter, 0, len(f))
	for _, r := range f {
		for _, n := range names {
			if r.Name == n {
				keep = append(keep, r)
				break
			}
		}
	}
	return keep
}
