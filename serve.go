package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"plate-reader/internal/api"
	"plate-reader/internal/app"
	"plate-reader/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func serveHTTP(ctx context.Context, a *app.App, cfg *config.Config, logger zerolog.Logger) int {
	gin.SetMode(gin.ReleaseMode)

	var opts api.Options
	if st := a.Store(); st != nil {
		opts.Recorder = st
		opts.Reviews = st
	}

	if cfg.ParamsFile != "" {
		watcher, err := app.NewFileWatcher(cfg.ParamsFile, 2*time.Second)
		if err != nil {
			logger.Warn().Err(err).Msg("params file not watched")
		} else {
			watcher.OnChange(func() { _ = a.ReloadParams() })
			watcher.Start()
			defer watcher.Stop()
			logger.Info().
				Str("file", watcher.Path()).
				Time("modified", watcher.ModTime()).
				Msg("watching params file")
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(a, logger, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("serving HTTP API")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server failed")
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
		return 1
	}
	return 0
}
