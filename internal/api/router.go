// Package api exposes the plate reader over HTTP.
package api

import (
	"time"

	"plate-reader/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Options wires optional collaborators into the router.
type Options struct {
	Recorder Recorder
	Reviews  ReviewQueue
}

// NewRouter returns the gin engine serving the API.
func NewRouter(reader PlateReader, logger zerolog.Logger, opts Options) *gin.Engine {
	logger = logging.Component(logger, "api")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	r.GET("/healthz", Health)

	h := NewPlateHandler(reader, opts.Recorder, opts.Reviews, logger)
	v1 := r.Group("/api/v1")
	{
		v1.POST("/plates/read", h.Read)

		reviews := v1.Group("/reviews")
		{
			reviews.GET("", h.Pending)
			reviews.POST("/:id", h.Review)
		}
	}
	return r
}

// requestLogger logs each request through zerolog.
func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := logger.Info()
		if c.Writer.Status() >= 500 {
			event = logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
