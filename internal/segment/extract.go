package segment

import (
	"image"
	"sort"

	perrors "plate-reader/internal/errors"
	plateimage "plate-reader/internal/image"
	"plate-reader/pkg/colorutil"
	"plate-reader/pkg/geometry"

	"gocv.io/x/gocv"
)

// Glyph is one accepted character image, padded, with its source box.
type Glyph struct {
	Image gocv.Mat
	Box   geometry.RectInt
	Rule  string
}

// Candidate is an external contour considered by the filter.
type Candidate struct {
	Box      geometry.RectInt
	Outline  []image.Point
	Accepted bool
	Rule     string
}

// Extraction holds the glyphs cut from a plate plus the intermediates they
// were derived from.
type Extraction struct {
	Glyphs     []Glyph     // left to right
	Candidates []Candidate // every contour, left to right
	Binary     gocv.Mat
	Edges      gocv.Mat
}

// Close releases the glyph images and intermediates.
func (e *Extraction) Close() {
	for i := range e.Glyphs {
		e.Glyphs[i].Image.Close()
	}
	e.Binary.Close()
	e.Edges.Close()
}

// Extract binarizes img at threshold, finds the outer contours of the edge
// map and keeps those the filter accepts, ordered by the left edge of their
// bounding box. An image with no acceptable contours gives no glyphs and no
// error.
func Extract(img gocv.Mat, threshold int, p Params) (*Extraction, error) {
	if img.Empty() {
		return nil, perrors.NewSegmentationError(perrors.StageExtract, "empty image", nil)
	}

	gray := plateimage.Gray(img)
	defer gray.Close()

	// Binarize: characters dark, background white
	binary := gocv.NewMat()
	gocv.Threshold(gray, &binary, float32(threshold), 255, gocv.ThresholdBinary)

	// Edges of the binary image give clean closed outlines
	edges := gocv.NewMat()
	gocv.Canny(binary, &edges, p.CannyLow, p.CannyHigh)

	ext := &Extraction{Binary: binary, Edges: edges}
	ext.Candidates = findCandidates(edges)

	// Area rules are relative to the whole plate
	imageArea := float64(img.Cols() * img.Rows())
	for i := range ext.Candidates {
		c := &ext.Candidates[i]
		rule, ok := p.Filter.Accept(ShapeOf(c.Box), imageArea)
		if !ok {
			continue
		}
		c.Accepted = true
		c.Rule = rule

		// Cut from the binary image so the classifier sees pure black on white
		ext.Glyphs = append(ext.Glyphs, Glyph{
			Image: padGlyph(binary, c.Box, p.GlyphPadding),
			Box:   c.Box,
			Rule:  rule,
		})
	}
	return ext, nil
}

// findCandidates returns the external contours of edges sorted by x.
func findCandidates(edges gocv.Mat) []Candidate {
	// External only: holes in 0, 8, B etc. must not become candidates
	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	candidates := make([]Candidate, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		box := geometry.FromRectangle(gocv.BoundingRect(contour))
		if box.Empty() {
			continue
		}
		candidates = append(candidates, Candidate{
			Box:     box,
			Outline: contour.ToPoints(),
		})
	}

	// Stable so that boxes sharing an x keep contour order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Box.X < candidates[j].Box.X
	})
	return candidates
}

// padGlyph copies box out of binary and surrounds it with a white border.
func padGlyph(binary gocv.Mat, box geometry.RectInt, pad int) gocv.Mat {
	region := binary.Region(box.Rectangle())
	defer region.Close()

	padded := gocv.NewMat()
	gocv.CopyMakeBorder(region, &padded, pad, pad, pad, pad, gocv.BorderConstant, colorutil.GlyphPad)
	return padded
}
