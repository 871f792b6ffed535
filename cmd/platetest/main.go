// Command platetest runs the plate pipeline on one image stage by stage,
// writing every intermediate to a directory and printing what each stage
// decided.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"plate-reader/internal/deskew"
	plateimage "plate-reader/internal/image"
	"plate-reader/internal/ocr"
	"plate-reader/internal/pipeline"
	"plate-reader/internal/segment"
	"plate-reader/internal/testplate"

	"gocv.io/x/gocv"
)

func main() {
	imagePath := flag.String("image", "", "Path to a plate crop (PNG, JPEG, TIFF, BMP, WebP)")
	synthetic := flag.Float64("synthetic", 0, "Use a synthetic plate rotated by this many degrees instead of -image")
	outDir := flag.String("out", "platetest-out", "Directory for stage images")
	paramsFile := flag.String("params", "", "JSON file overriding pipeline parameters")
	model := flag.String("model", "", "DNN character model; enables classification")
	useTesseract := flag.Bool("tesseract", false, "Classify with Tesseract instead of a DNN model")
	scale := flag.Float64("scale", 0, "Override the upscale factor")
	cannyLow := flag.Float64("canny-low", 0, "Override the skew Canny low threshold (with -canny-high)")
	cannyHigh := flag.Float64("canny-high", 0, "Override the skew Canny high threshold (with -canny-low)")
	votes := flag.Int("votes", 0, "Override the Hough vote threshold")
	minLine := flag.Float64("min-line", -1, "Override the Hough minimum segment length (with -votes)")
	maxGap := flag.Float64("max-gap", -1, "Override the Hough maximum gap (with -votes)")
	rules := flag.String("rules", "", "Comma-separated filter rules to keep (tall,block)")
	saveParams := flag.String("save-params", "", "Write the effective parameters to this JSON file")
	flag.Parse()

	if *imagePath == "" && *synthetic == 0 {
		fmt.Println("Usage: platetest -image <path> [-out dir] [-params file] [-model file | -tesseract]")
		fmt.Println("       platetest -synthetic <degrees> [-out dir]")
		os.Exit(1)
	}

	params := pipeline.DefaultParams()
	if *paramsFile != "" {
		var err error
		params, err = pipeline.LoadParams(*paramsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load params: %v\n", err)
			os.Exit(1)
		}
	}

	// Command-line overrides on top of the params file.
	if *scale > 0 {
		params.Segment = params.Segment.WithScale(*scale)
	}
	if *cannyLow > 0 && *cannyHigh > 0 {
		params.Deskew = params.Deskew.WithCanny(float32(*cannyLow), float32(*cannyHigh))
	}
	if *votes > 0 {
		minLen, gap := params.Deskew.MinLineLength, params.Deskew.MaxLineGap
		if *minLine >= 0 {
			minLen = float32(*minLine)
		}
		if *maxGap >= 0 {
			gap = float32(*maxGap)
		}
		params.Deskew = params.Deskew.WithHough(*votes, minLen, gap)
	}
	if *rules != "" {
		params.Segment = params.Segment.WithFilter(params.Segment.Filter.Only(strings.Split(*rules, ",")...))
	}
	if err := params.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid parameters: %v\n", err)
		os.Exit(1)
	}
	if *saveParams != "" {
		if err := params.SaveToFile(*saveParams); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save params: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Saved parameters to %s\n", *saveParams)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", *outDir, err)
		os.Exit(1)
	}

	var img gocv.Mat
	if *imagePath != "" {
		var err error
		img, err = plateimage.Load(*imagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
			os.Exit(1)
		}
	} else {
		spec := testplate.Standard()
		spec.Angle = *synthetic
		img = testplate.Draw(spec)
	}
	defer img.Close()
	fmt.Printf("Loaded plate: %dx%d pixels, %d channels\n", img.Cols(), img.Rows(), img.Channels())

	write := func(name string, m gocv.Mat) {
		path := filepath.Join(*outDir, name)
		data, err := plateimage.EncodePNG(m)
		if err == nil {
			err = os.WriteFile(path, data, 0644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "  failed to write %s: %v\n", path, err)
			return
		}
		fmt.Printf("  wrote %s\n", path)
	}

	gray := plateimage.Gray(img)
	write("01-gray.png", gray)
	gray.Close()

	// Stage 1: skew
	fmt.Printf("\n=== Skew ===\n")
	fmt.Printf("  Canny %.0f/%.0f, Hough rho=%.1f theta=%.4f votes=%d minLen=%.0f maxGap=%.0f\n",
		params.Deskew.CannyLow, params.Deskew.CannyHigh,
		params.Deskew.HoughRho, params.Deskew.HoughTheta, params.Deskew.HoughVotes,
		params.Deskew.MinLineLength, params.Deskew.MaxLineGap)
	segments := deskew.DetectSegments(img, params.Deskew)
	fmt.Printf("  %d line segments\n", len(segments))
	angle, err := deskew.EstimateSkew(img, params.Deskew)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Skew estimation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  angle: %d degrees\n", angle)

	level := deskew.Rotate(img, float64(angle), params.Deskew.BorderFill)
	defer level.Close()
	write("02-deskewed.png", level)

	// Stage 2: border crop
	fmt.Printf("\n=== Border crop ===\n")
	cropped, rows, err := deskew.CropBorder(level, params.Deskew.BorderFill)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Border crop failed: %v\n", err)
		os.Exit(1)
	}
	defer cropped.Close()
	fmt.Printf("  rows [%d, %d), height %d\n", rows.Upper, rows.Lower, rows.Height())
	write("03-cropped.png", cropped)

	// Stage 3: normalize
	fmt.Printf("\n=== Normalize ===\n")
	normalized := segment.Upscale(cropped, params.Segment.Scale)
	defer normalized.Close()
	threshold := segment.EstimateThreshold(normalized, params.Segment)
	fmt.Printf("  scale x%.0f -> %dx%d, threshold %d\n", params.Segment.Scale, normalized.Cols(), normalized.Rows(), threshold)
	write("04-normalized.png", normalized)

	// Stage 4: extract
	fmt.Printf("\n=== Extract ===\n")
	ext, err := segment.Extract(normalized, threshold, params.Segment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Extraction failed: %v\n", err)
		os.Exit(1)
	}
	defer ext.Close()
	write("05-binary.png", ext.Binary)
	write("06-edges.png", ext.Edges)

	fmt.Printf("%-4s %6s %6s %6s %6s %8s %8s\n", "#", "X", "Y", "W", "H", "Aspect", "Rule")
	for i, c := range ext.Candidates {
		rule := c.Rule
		if !c.Accepted {
			rule = "-"
		}
		fmt.Printf("%-4d %6d %6d %6d %6d %8.2f %8s\n", i, c.Box.X, c.Box.Y, c.Box.Width, c.Box.Height, c.Box.Aspect(), rule)
	}
	fmt.Printf("  %d candidates, %d glyphs\n", len(ext.Candidates), len(ext.Glyphs))
	for i, g := range ext.Glyphs {
		write(fmt.Sprintf("07-glyph-%02d.png", i), g.Image)
	}

	annotated := segment.Annotate(normalized, ext)
	defer annotated.Close()
	write("08-annotated.png", annotated)

	// Stage 5: classify
	classifier, closeClassifier, err := openClassifier(*model, *useTesseract)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load classifier: %v\n", err)
		os.Exit(1)
	}
	if classifier == nil {
		fmt.Println("\nNo classifier given; stopping after extraction.")
		return
	}
	defer closeClassifier()

	fmt.Printf("\n=== Classify (floor %.2f) ===\n", params.ConfidenceFloor)
	assembly, err := ocr.NewAssembler(classifier, params.ConfidenceFloor).Assemble(ext.Glyphs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Classification failed: %v\n", err)
		os.Exit(1)
	}
	for i, s := range assembly.Symbols {
		fmt.Printf("  glyph %2d at x=%-5d %s %.3f accepted=%v\n", i, s.Box.X, s.Symbol, s.Confidence, s.Accepted)
	}
	fmt.Printf("\nPlate: %q\n", assembly.Plate)
}

func openClassifier(model string, useTesseract bool) (ocr.Classifier, func() error, error) {
	switch {
	case useTesseract:
		c, err := ocr.NewTesseractClassifier()
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case model != "":
		c, err := ocr.LoadNetClassifier(model, "")
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		return nil, nil, nil
	}
}
