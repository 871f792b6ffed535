// Package app wires configuration, the classifier, the pipeline and the read
// log into a running process.
package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"plate-reader/internal/config"
	"plate-reader/internal/logging"
	"plate-reader/internal/ocr"
	"plate-reader/internal/pipeline"
	"plate-reader/internal/store"

	"github.com/rs/zerolog"
)

// Classifier is an ocr.Classifier holding native resources.
type Classifier interface {
	ocr.Classifier
	io.Closer
}

// OpenClassifier creates the backend named by cfg.Classifier.
func OpenClassifier(cfg *config.Config, logger zerolog.Logger) (Classifier, error) {
	switch cfg.Classifier {
	case config.ClassifierTesseract:
		c, err := ocr.NewTesseractClassifier()
		if err != nil {
			return nil, err
		}
		logger.Info().Str("backend", cfg.Classifier).Msg("classifier loaded")
		return c, nil
	case config.ClassifierDNN:
		c, err := ocr.LoadNetClassifier(cfg.ModelPath, cfg.ModelConfig)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("backend", cfg.Classifier).Str("model", cfg.ModelPath).Msg("classifier loaded")
		return c, nil
	default:
		return nil, fmt.Errorf("unknown classifier %q", cfg.Classifier)
	}
}

// App holds the process state. Reads go through the current pipeline.Reader,
// which ReloadParams swaps without interrupting reads in flight.
type App struct {
	cfg        *config.Config
	classifier ocr.Classifier
	base       zerolog.Logger
	logger     zerolog.Logger

	mu     sync.RWMutex
	reader *pipeline.Reader

	store *store.Store
}

// New builds an App around classifier. Parameters come from cfg.ParamsFile
// when set; otherwise the defaults with cfg's confidence floor.
func New(cfg *config.Config, classifier ocr.Classifier, logger zerolog.Logger) (*App, error) {
	a := &App{
		cfg:        cfg,
		classifier: classifier,
		base:       logger,
		logger:     logging.Component(logger, "app"),
	}
	params, err := a.params()
	if err != nil {
		return nil, err
	}
	a.reader = pipeline.New(classifier, params, logger)
	return a, nil
}

func (a *App) params() (pipeline.Params, error) {
	params := pipeline.DefaultParams().WithConfidenceFloor(a.cfg.ConfidenceFloor)
	if a.cfg.ParamsFile != "" {
		var err error
		params, err = pipeline.LoadParams(a.cfg.ParamsFile)
		if err != nil {
			return params, err
		}
	}
	return params.WithAnnotate(a.cfg.AnnotateDir != ""), nil
}

// Reader returns the current reader.
func (a *App) Reader() *pipeline.Reader {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.reader
}

// Read reads one crop with the current reader.
func (a *App) Read(crop pipeline.Crop) (*pipeline.Read, error) {
	return a.Reader().Read(crop)
}

// ReloadParams re-reads the params file and swaps the reader. An invalid
// file leaves the current reader in place.
func (a *App) ReloadParams() error {
	params, err := a.params()
	if err != nil {
		a.logger.Error().Err(err).Str("file", a.cfg.ParamsFile).Msg("params reload failed")
		return err
	}
	reader := pipeline.New(a.classifier, params, a.base)

	a.mu.Lock()
	a.reader = reader
	a.mu.Unlock()

	a.logger.Info().
		Str("file", a.cfg.ParamsFile).
		Float64("confidence_floor", params.ConfidenceFloor).
		Msg("params reloaded")
	return nil
}

// OpenStore connects the read log when cfg.DatabaseURL is set. Without a
// database URL it returns nil and no error.
func (a *App) OpenStore(ctx context.Context) (*store.Store, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, nil
	}
	st, err := store.Open(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		st.Close()
		return nil, err
	}
	a.store = st
	a.logger.Info().Msg("read log connected")
	return st, nil
}

// Store returns the read log, or nil.
func (a *App) Store() *store.Store {
	return a.store
}

// Close releases the read log.
func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
