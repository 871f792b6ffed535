// Package main provides the entry point for the plate reader.
//
// Usage:
//
//	plate-reader [flags] <image or directory>...
//	plate-reader -serve
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"plate-reader/internal/app"
	"plate-reader/internal/config"
	"plate-reader/internal/logging"
	"plate-reader/internal/version"
	"plate-reader/pkg/geometry"
)

func main() {
	os.Exit(run())
}

func run() int {
	showVersion := flag.Bool("version", false, "Print version and exit")
	serve := flag.Bool("serve", false, "Serve the HTTP API instead of reading files")
	classifier := flag.String("classifier", "", "Classifier backend: dnn or tesseract (default PLATE_CLASSIFIER)")
	paramsFile := flag.String("params", "", "JSON file overriding pipeline parameters (default PLATE_PARAMS_FILE)")
	workers := flag.Int("workers", 0, "Number of parallel readers (default PLATE_WORKERS)")
	annotateDir := flag.String("annotate", "", "Write annotated plates to this directory (default PLATE_ANNOTATE_DIR)")
	boxFlag := flag.String("box", "", "Cut the plate out of each image: x,y,w,h")
	label := flag.String("label", "", "Detector label carried with each crop and drawn on annotated plates")
	guides := flag.Float64("guides", 0, "Draw column guides every fraction of the plate width on annotated plates")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: plate-reader [flags] <image or directory>...\n       plate-reader -serve\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 2
	}
	if *classifier != "" {
		cfg.Classifier = *classifier
	}
	if *paramsFile != "" {
		cfg.ParamsFile = *paramsFile
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *annotateDir != "" {
		cfg.AnnotateDir = *annotateDir
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 2
	}

	var box *geometry.RectInt
	if *boxFlag != "" {
		b, err := parseBox(*boxFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -box: %v\n", err)
			return 2
		}
		box = &b
	}

	if !*serve && flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Console: cfg.LogConsole})
	logger.Info().Str("version", version.Version).Str("classifier", cfg.Classifier).Msg("starting plate reader")

	c, err := app.OpenClassifier(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load classifier")
		return 1
	}
	defer c.Close()

	a, err := app.New(cfg, c, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build pipeline")
		return 1
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := a.OpenStore(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to open read log")
		return 1
	}

	if *serve {
		return serveHTTP(ctx, a, cfg, logger)
	}
	return readFiles(ctx, a, cfg, flag.Args(), batchOptions{box: box, label: *label, guides: *guides}, logger)
}
