package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/okian/visionauth/internal/adapters/canvas"
	"github.com/okian/visionauth/internal/adapters/landmark"
	"github.com/okian/visionauth/internal/app"
	"github.com/okian/visionauth/internal/domain/model"
	"github.com/okian/visionauth/pkg/logger"
	"github.com/spf13/cobra"
)

type snapshotOptions struct {
	mode     string
	feature  string
	out      string
	duration time.Duration
}

func newSnapshotCmd(c *cli) *cobra.Command {
	o := snapshotOptions{}
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Run a short synthetic session and write the last frame as PNG",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return snapshot(cmd.Context(), c, o)
		},
	}
	cmd.Flags().StringVar(&o.mode, "mode", string(model.ModeAccuracy), "performance or accuracy")
	cmd.Flags().StringVar(&o.feature, "feature", string(model.FeatureEmotions), "emotions or age")
	cmd.Flags().StringVarP(&o.out, "out", "o", "snapshot.png", "output PNG path")
	cmd.Flags().DurationVar(&o.duration, "duration", 500*time.Millisecond, "how long to run before capturing")
	return cmd
}

func snapshot(ctx context.Context, c *cli, o snapshotOptions) error {
	cfg := c.cfg
	log := logger.Get()

	mode, err := model.ParseMode(o.mode)
	if err != nil {
		return err
	}
	feature, err := model.ParseFeature(o.feature)
	if err != nil {
		return err
	}

	var (
		mu   sync.Mutex
		last model.DisplayUpdate
	)
	sink := app.DisplayFunc(func(_ context.Context, u model.DisplayUpdate) {
		mu.Lock()
		last = u
		mu.Unlock()
	})

	raster := canvas.NewRaster(cfg.CanvasWidth, cfg.CanvasHeight)
	factory := landmark.SyntheticFactory(landmark.WithSyntheticLogger(log.Named("synthetic")))
	ctrl := newController(cfg, raster, sink, factory, log)

	if err := ctrl.SelectMode(ctx, mode); err != nil {
		return err
	}
	if err := ctrl.SelectFeature(ctx, feature); err != nil {
		return err
	}
	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	defer ctrl.Stop(context.WithoutCancel(ctx))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(o.duration):
	}

	f, err := os.Create(o.out)
	if err != nil {
		return fmt.Errorf("create %s: %w", o.out, err)
	}
	mu.Lock()
	lines := captionLines(last)
	mu.Unlock()
	if err := raster.WritePNG(f, lines...); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", o.out, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", o.out, err)
	}

	log.Info(ctx, "snapshot written",
		logger.String("path", o.out),
		logger.String("mode", mode.DisplayName()),
		logger.String("feature", feature.DisplayName()))
	return nil
}

func captionLines(u model.DisplayUpdate) []string {
	lines := []string{u.ModeName}
	if u.ResultLabel != "" {
		lines = append(lines, fmt.Sprintf("%s: %s (%d%%)", u.FeatureName, u.ResultLabel, u.ConfidencePercent))
	}
	if !u.Detecting {
		lines = append(lines, "no face")
	}
	return lines
}
