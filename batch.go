package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"plate-reader/internal/app"
	"plate-reader/internal/config"
	plateimage "plate-reader/internal/image"
	"plate-reader/internal/pipeline"
	"plate-reader/internal/segment"
	"plate-reader/internal/store"
	"plate-reader/pkg/geometry"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

type batchOptions struct {
	box    *geometry.RectInt
	label  string
	guides float64
}

// parseBox parses "x,y,w,h".
func parseBox(s string) (geometry.RectInt, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.RectInt{}, fmt.Errorf("want x,y,w,h, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return geometry.RectInt{}, fmt.Errorf("%q is not an integer", p)
		}
		v[i] = n
	}
	box := geometry.RectInt{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if box.Empty() {
		return box, fmt.Errorf("box has no area")
	}
	return box, nil
}

// collectInputs expands directories into the image files they contain.
func collectInputs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(path))] {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// loadCrops decodes each file, cutting out box when set. Files that fail to
// load are reported and skipped.
func loadCrops(files []string, opts batchOptions, logger zerolog.Logger) []pipeline.Crop {
	crops := make([]pipeline.Crop, 0, len(files))
	for _, path := range files {
		img, err := plateimage.Load(path)
		if err != nil {
			logger.Error().Err(err).Str("source", path).Msg("failed to load image")
			fmt.Printf("%s → error: %v\n", path, err)
			continue
		}
		if opts.box != nil {
			cropped, err := plateimage.CropRegion(img, *opts.box)
			img.Close()
			if err != nil {
				cropped.Close()
				logger.Error().Err(err).Str("source", path).Msg("failed to cut plate")
				fmt.Printf("%s → error: %v\n", path, err)
				continue
			}
			img = cropped
		}
		crops = append(crops, pipeline.Crop{Source: path, Image: img, Label: opts.label})
	}
	return crops
}

func readFiles(ctx context.Context, a *app.App, cfg *config.Config, args []string, opts batchOptions, logger zerolog.Logger) int {
	files, err := collectInputs(args)
	if err != nil {
		logger.Error().Err(err).Msg("failed to collect inputs")
		return 1
	}

	crops := loadCrops(files, opts, logger)
	defer func() {
		for _, c := range crops {
			c.Image.Close()
		}
	}()

	if cfg.AnnotateDir != "" {
		if err := os.MkdirAll(cfg.AnnotateDir, 0755); err != nil {
			logger.Error().Err(err).Msg("failed to create annotate directory")
			return 1
		}
	}

	outcomes, batchErr := a.Reader().ReadAll(ctx, crops, cfg.Workers)

	counts := map[pipeline.Status]int{}
	for i, o := range outcomes {
		status := o.Status()
		counts[status]++

		switch {
		case o.Err != nil:
			fmt.Printf("%s → %s: %v\n", o.Source, status, o.Err)
		case o.Read.Empty():
			fmt.Printf("%s → (no characters)\n", o.Source)
		default:
			fmt.Printf("%s → %s\n", o.Source, o.Read.Plate)
		}

		if st := a.Store(); st != nil && status != pipeline.StatusSkipped {
			if err := st.Record(ctx, store.FromRead(crops[i], o.Read, o.Err)); err != nil {
				logger.Error().Err(err).Str("source", o.Source).Msg("failed to record read")
			}
		}

		if o.Read != nil {
			if cfg.AnnotateDir != "" {
				if err := writeAnnotated(cfg.AnnotateDir, o.Read, opts); err != nil {
					logger.Error().Err(err).Str("source", o.Source).Msg("failed to write annotated plate")
				}
			}
			o.Read.Close()
		}
	}

	logger.Info().
		Int("files", len(files)).
		Int("read", counts[pipeline.StatusRead]).
		Int("empty", counts[pipeline.StatusEmpty]).
		Int("flagged", counts[pipeline.StatusSegmentationFailure]).
		Int("skipped", counts[pipeline.StatusSkipped]).
		Msg("batch complete")

	if batchErr != nil {
		logger.Error().Err(batchErr).Msg("batch stopped")
		return 1
	}
	return 0
}

// writeAnnotated writes <source>-<id>.png into dir.
func writeAnnotated(dir string, read *pipeline.Read, opts batchOptions) error {
	if read.Annotated.Empty() {
		return nil
	}
	img := read.Annotated.Clone()
	defer img.Close()

	if opts.guides > 0 {
		segment.DrawColumnGuides(&img, opts.guides)
	}
	if read.Label != "" {
		segment.PutLabel(&img, 0, 0, read.Label)
	}
	return writePNG(filepath.Join(dir, annotatedName(read)), img)
}

func annotatedName(read *pipeline.Read) string {
	base := filepath.Base(read.Source)
	return fmt.Sprintf("%s-%s.png", strings.TrimSuffix(base, filepath.Ext(base)), read.ID)
}

func writePNG(path string, img gocv.Mat) error {
	data, err := plateimage.EncodePNG(img)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
