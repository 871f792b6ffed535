// Package pipeline chains deskewing, segmentation and classification into
// plate reads.
package pipeline

import (
	"context"
	"errors"
	"time"

	"plate-reader/internal/deskew"
	perrors "plate-reader/internal/errors"
	"plate-reader/internal/logging"
	"plate-reader/internal/ocr"
	"plate-reader/internal/segment"
	"plate-reader/pkg/geometry"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// Crop is a plate image from the detector with its label and score, which
// are carried through untouched.
type Crop struct {
	Source     string
	Image      gocv.Mat
	Label      string
	Confidence float64
}

// Status summarizes the outcome of one read.
type Status string

const (
	StatusRead                Status = "read"
	StatusEmpty               Status = "empty"
	StatusSegmentationFailure Status = "segmentation_failure"
	StatusClassifierFailure   Status = "classifier_failure"
	StatusSkipped             Status = "skipped"
)

// Read is the result of reading one crop.
type Read struct {
	ID         uuid.UUID
	Source     string
	Label      string
	Confidence float64

	Angle      int
	CropRows   deskew.RowRange
	Threshold  int
	Candidates int
	Plate      string
	Symbols    []ocr.Symbol

	// Annotated is the normalized plate with contours and boxes drawn. It is
	// empty unless Params.Annotate is set.
	Annotated gocv.Mat
	Elapsed   time.Duration
}

// Empty reports whether no symbol made it into the plate.
func (r *Read) Empty() bool {
	return r.Plate == ""
}

// Close releases the annotated image.
func (r *Read) Close() {
	r.Annotated.Close()
}

// StatusOf classifies the result of Reader.Read.
func StatusOf(read *Read, err error) Status {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusSkipped
	case perrors.IsClassifierUnavailable(err):
		return StatusClassifierFailure
	case err != nil:
		return StatusSegmentationFailure
	case read == nil || read.Empty():
		return StatusEmpty
	default:
		return StatusRead
	}
}

// Reader runs the pipeline. It holds no per-plate state, so one Reader may
// serve many goroutines as long as its classifier is safe for concurrent use.
type Reader struct {
	assembler *ocr.Assembler
	params    Params
	logger    zerolog.Logger
}

// New returns a Reader classifying glyphs with c.
func New(c ocr.Classifier, params Params, logger zerolog.Logger) *Reader {
	return &Reader{
		assembler: ocr.NewAssembler(c, params.ConfidenceFloor),
		params:    params,
		logger:    logging.Component(logger, "pipeline"),
	}
}

// Params returns the reader's parameters.
func (r *Reader) Params() Params {
	return r.params
}

// Read reads the plate in crop. A crop that cannot be segmented returns a
// SegmentationError; a classifier failure returns a ClassifierError. No glyph
// surviving the filter is not an error: the plate is empty.
//
// On failure the partial Read is returned alongside the error. It keeps the
// ID used in the logs and whatever stages completed, and must be closed.
func (r *Reader) Read(crop Crop) (*Read, error) {
	start := time.Now()
	result := &Read{
		ID:         uuid.New(),
		Source:     crop.Source,
		Label:      crop.Label,
		Confidence: crop.Confidence,
		Annotated:  gocv.NewMat(),
	}
	log := r.logger.With().Str("read_id", result.ID.String()).Str("source", crop.Source).Logger()

	if err := r.read(crop.Image, result, log); err != nil {
		result.Elapsed = time.Since(start)
		var seg *perrors.SegmentationError
		switch {
		case perrors.IsClassifierUnavailable(err):
			log.Error().Err(err).Msg("classifier failed")
		case errors.As(err, &seg):
			log.Warn().Fields(seg.ToMap()).Msg("plate flagged for review")
		default:
			log.Warn().Err(err).Msg("plate flagged for review")
		}
		return result, err
	}

	result.Elapsed = time.Since(start)
	log.Info().
		Str("plate", result.Plate).
		Str("label", result.Label).
		Int("angle", result.Angle).
		Int("candidates", result.Candidates).
		Dur("elapsed", result.Elapsed).
		Msg("plate read")
	return result, nil
}

func (r *Reader) read(img gocv.Mat, result *Read, log zerolog.Logger) error {
	if img.Empty() || img.Channels() != 3 {
		return perrors.NewSegmentationError(perrors.StageInput, "crop must be a non-empty 3-channel image", nil)
	}

	angle, err := deskew.EstimateSkew(img, r.params.Deskew)
	if err != nil {
		return err
	}
	result.Angle = angle

	level := deskew.Rotate(img, float64(angle), r.params.Deskew.BorderFill)
	defer level.Close()

	cropped, rows, err := deskew.CropBorder(level, r.params.Deskew.BorderFill)
	if err != nil {
		return err
	}
	defer cropped.Close()
	result.CropRows = rows

	normalized := segment.Upscale(cropped, r.params.Segment.Scale)
	defer normalized.Close()

	result.Threshold = segment.EstimateThreshold(normalized, r.params.Segment)
	log.Debug().
		Int("angle", angle).
		Int("upper", rows.Upper).
		Int("lower", rows.Lower).
		Int("threshold", result.Threshold).
		Msg("plate normalized")

	ext, err := segment.Extract(normalized, result.Threshold, r.params.Segment)
	if err != nil {
		return err
	}
	defer ext.Close()
	result.Candidates = len(ext.Glyphs)
	log.Debug().Int("contours", len(ext.Candidates)).Int("glyphs", len(ext.Glyphs)).Msg("candidates extracted")

	if r.params.Annotate {
		result.Annotated.Close()
		result.Annotated = segment.Annotate(normalized, ext)
	}

	assembly, err := r.assembler.Assemble(ext.Glyphs)
	if err != nil {
		return err
	}

	// Report every box on the input crop as well as on the normalized plate.
	back := toCrop(img.Cols(), img.Rows(), angle, rows, r.params.Segment.Scale)
	for i := range assembly.Symbols {
		assembly.Symbols[i].SourceBox = back.ApplyRect(assembly.Symbols[i].Box).ClampTo(img.Cols(), img.Rows())
	}
	result.Plate = assembly.Plate
	result.Symbols = assembly.Symbols
	log.Debug().
		Float64("floor", r.assembler.Floor()).
		Int("accepted", len(result.Plate)).
		Msg("glyphs classified")
	return nil
}

// toCrop maps normalized plate coordinates back onto a width x height crop:
// undo the upscale, restore the cropped rows, then undo the rotation.
func toCrop(width, height, angle int, rows deskew.RowRange, scale float64) geometry.AffineTransform {
	center := geometry.Point2D{X: float64(width) / 2, Y: float64(height) / 2}
	// A rotation is always invertible.
	unrotate, _ := geometry.RotationAbout(center, float64(angle)).Inverse()
	return unrotate.
		Compose(geometry.Translation(0, float64(rows.Upper))).
		Compose(geometry.Scaling(1/scale, 1/scale))
}
