package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/visionauth/internal/adapters/canvas"
	"github.com/okian/visionauth/internal/adapters/http/api"
	"github.com/okian/visionauth/internal/adapters/http/site"
	"github.com/okian/visionauth/internal/adapters/http/stream"
	"github.com/okian/visionauth/internal/adapters/http/swagger"
	"github.com/okian/visionauth/internal/domain/render"
	"github.com/okian/visionauth/pkg/logger"
	"github.com/okian/visionauth/pkg/metrics"
	"github.com/spf13/cobra"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		addr    string
		preview bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session API, dashboard and overlay stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.cfg.Addr = addr
			}
			return serve(cmd.Context(), c, preview)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides addr)")
	cmd.Flags().BoolVar(&preview, "preview", false, "also draw into a native window (OpenCV builds only)")
	return cmd
}

func serve(ctx context.Context, c *cli, preview bool) error {
	cfg := c.cfg
	log := logger.Get()

	go metrics.RunSystemCollector(ctx)

	hub := stream.NewHub(stream.WithLogger(log.Named("stream")))
	go hub.Run(ctx)

	raster := canvas.NewRaster(cfg.CanvasWidth, cfg.CanvasHeight)
	overlay := canvas.NewOverlay(float64(cfg.CanvasWidth), float64(cfg.CanvasHeight), hub)
	targets := []render.Canvas{overlay}
	if preview {
		win, err := canvas.NewPreview(cfg.CanvasWidth, cfg.CanvasHeight, "VisionAuth")
		if err != nil {
			log.Warn(ctx, "preview window unavailable", logger.Error(err))
		} else {
			defer func() { _ = win.Close() }()
			targets = append(targets, win)
		}
	}
	surface := canvas.NewTee(raster, targets...)

	ctrl := newController(cfg, surface, hub, sourceFactory(cfg, log), log)
	defer ctrl.Stop(context.WithoutCancel(ctx))

	// HTTP mux and routes.
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	api.NewServer(ctrl, raster, hub).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("source", cfg.Source))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}
