package main

import (
	"github.com/okian/visionauth/internal/adapters/capture"
	"github.com/okian/visionauth/internal/adapters/landmark"
	"github.com/okian/visionauth/internal/app"
	"github.com/okian/visionauth/internal/config"
	"github.com/okian/visionauth/internal/domain/analysis"
	"github.com/okian/visionauth/internal/domain/model"
	"github.com/okian/visionauth/internal/domain/render"
	"github.com/okian/visionauth/pkg/logger"
)

// sourceFactory picks the landmark source named by cfg.Source.
func sourceFactory(cfg *config.Config, log logger.Logger) landmark.Factory {
	if cfg.Source == config.SourceSidecar {
		newDevice := func() capture.Device { return capture.NewWebcam(cfg.CameraDevice, cfg.CameraFPS) }
		return landmark.SidecarFactory(cfg.SidecarURL, newDevice, landmark.WithSidecarLogger(log.Named("sidecar")))
	}
	return landmark.SyntheticFactory(landmark.WithSyntheticLogger(log.Named("synthetic")))
}

// newController wires a controller with the configured profiles and
// confidence heuristic.
func newController(cfg *config.Config, c render.Canvas, sink app.DisplaySink, factory landmark.Factory, log logger.Logger) *app.Controller {
	conf := analysis.Confidence{
		DetectingBase: cfg.ConfidenceDetectingBase,
		AbsentBase:    cfg.ConfidenceAbsentBase,
		Jitter:        cfg.ConfidenceJitter,
	}
	generators := func(f model.Feature) (analysis.Generator, error) {
		return analysis.ForFeature(f, analysis.WithConfidence(conf))
	}
	return app.New(c, sink, factory,
		app.WithProfiles(app.ProfilesFromConfig(cfg)),
		app.WithGenerators(generators),
		app.WithFPS(cfg.CameraFPS),
		app.WithLogger(log.Named("session")),
	)
}
