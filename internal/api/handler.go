package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	perrors "plate-reader/internal/errors"
	plateimage "plate-reader/internal/image"
	"plate-reader/internal/ocr"
	"plate-reader/internal/pipeline"
	"plate-reader/internal/store"
	"plate-reader/internal/version"
	"plate-reader/pkg/geometry"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// PlateReader reads one crop; *pipeline.Reader implements it.
type PlateReader interface {
	Read(crop pipeline.Crop) (*pipeline.Read, error)
}

// Recorder persists read outcomes; *store.Store implements it.
type Recorder interface {
	Record(ctx context.Context, rec store.Record) error
}

// ReviewQueue exposes reads waiting for a person; *store.Store implements it.
type ReviewQueue interface {
	PendingReview(ctx context.Context, limit int) ([]store.Record, error)
	MarkReviewed(ctx context.Context, id uuid.UUID, plate string) (float64, error)
}

// ReadRequest is the body of POST /api/v1/plates/read.
type ReadRequest struct {
	ImageBase64 string            `json:"image_base64" binding:"required"`
	Source      string            `json:"source"`
	Label       string            `json:"label"`
	Confidence  float64           `json:"confidence"`
	Box         *geometry.RectInt `json:"box"`
}

// ReadResponse is returned for every read, successful or not.
type ReadResponse struct {
	ID         string       `json:"id"`
	Status     string       `json:"status"`
	Plate      string       `json:"plate"`
	Angle      int          `json:"angle"`
	Candidates int          `json:"candidates"`
	Symbols    []ocr.Symbol `json:"symbols"`
	Label      string       `json:"label,omitempty"`
	Confidence float64      `json:"confidence,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// ReviewRequest is the body of POST /api/v1/reviews/:id.
type ReviewRequest struct {
	Plate string `json:"plate" binding:"required"`
}

// PlateHandler serves plate reads.
type PlateHandler struct {
	reader   PlateReader
	recorder Recorder
	reviews  ReviewQueue
	logger   zerolog.Logger
}

// NewPlateHandler returns a handler. recorder and reviews may be nil.
func NewPlateHandler(reader PlateReader, recorder Recorder, reviews ReviewQueue, logger zerolog.Logger) *PlateHandler {
	return &PlateHandler{reader: reader, recorder: recorder, reviews: reviews, logger: logger}
}

// Read handles POST /api/v1/plates/read.
func (h *PlateHandler) Read(c *gin.Context) {
	var req ReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_base64 is not a valid base64 image"})
		return
	}

	img, err := plateimage.Decode(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Box != nil {
		cropped, err := plateimage.CropRegion(img, *req.Box)
		img.Close()
		if err != nil {
			cropped.Close()
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		img = cropped
	}
	defer img.Close()

	crop := pipeline.Crop{Source: req.Source, Image: img, Label: req.Label, Confidence: req.Confidence}
	read, readErr := h.reader.Read(crop)
	if read != nil {
		defer read.Close()
	}
	rec := store.FromRead(crop, read, readErr)
	h.record(c.Request.Context(), rec)

	resp := ReadResponse{
		ID:         rec.ID.String(),
		Status:     string(rec.Status),
		Label:      req.Label,
		Confidence: req.Confidence,
		Symbols:    []ocr.Symbol{},
	}
	// A failed read still reports the stages it got through.
	if read != nil {
		resp.Angle = read.Angle
		resp.Candidates = read.Candidates
	}

	switch {
	case perrors.IsClassifierUnavailable(readErr):
		resp.Error = readErr.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
	case perrors.IsSegmentation(readErr):
		resp.Error = readErr.Error()
		c.JSON(http.StatusUnprocessableEntity, resp)
	case readErr != nil:
		h.logger.Error().Err(readErr).Str("read_id", resp.ID).Msg("read failed")
		resp.Error = readErr.Error()
		c.JSON(http.StatusInternalServerError, resp)
	default:
		if read != nil {
			resp.Plate = read.Plate
			if read.Symbols != nil {
				resp.Symbols = read.Symbols
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (h *PlateHandler) record(ctx context.Context, rec store.Record) {
	if h.recorder == nil {
		return
	}
	if recErr := h.recorder.Record(ctx, rec); recErr != nil {
		h.logger.Error().Err(recErr).Str("read_id", rec.ID.String()).Msg("failed to record read")
	}
}

// Pending handles GET /api/v1/reviews.
func (h *PlateHandler) Pending(c *gin.Context) {
	if h.reviews == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "review queue is not configured"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	records, err := h.reviews.PendingReview(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list pending reviews")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list pending reviews"})
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"reads": records})
}

// Review handles POST /api/v1/reviews/:id.
func (h *PlateHandler) Review(c *gin.Context) {
	if h.reviews == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "review queue is not configured"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid read id"})
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	similarity, err := h.reviews.MarkReviewed(c.Request.Context(), id, req.Plate)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("read_id", id.String()).Msg("failed to mark reviewed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark reviewed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id.String(), "similarity": similarity})
}

// Health handles GET /healthz.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Version,
		"opencv":  gocv.OpenCVVersion(),
	})
}
