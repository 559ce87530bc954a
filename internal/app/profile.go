package app

import (
	"time"

	"github.com/okian/visionauth/internal/adapters/landmark"
	"github.com/okian/visionauth/internal/config"
	"github.com/okian/visionauth/internal/domain/model"
)

// Profile is everything a mode decides about a session.
type Profile struct {
	RefineLandmarks        bool
	MinDetectionConfidence float64
	MinTrackingConfidence  float64
	Width                  int
	Height                 int
	// AnalysisInterval is the mock analysis cadence.
	AnalysisInterval time.Duration
}

// Profiles maps each mode to its profile.
type Profiles map[model.Mode]Profile

// DefaultProfiles trades detail for speed in performance mode. Performance
// ticks every second, accuracy every two.
func DefaultProfiles() Profiles {
	return ProfilesFromConfig(config.New())
}

// ProfilesFromConfig builds the profiles from configuration.
func ProfilesFromConfig(cfg *config.Config) Profiles {
	return Profiles{
		model.ModePerformance: {
			RefineLandmarks:        cfg.PerformanceRefine,
			MinDetectionConfidence: cfg.PerformanceMinDetection,
			MinTrackingConfidence:  cfg.PerformanceMinTracking,
			Width:                  cfg.PerformanceWidth,
			Height:                 cfg.PerformanceHeight,
			AnalysisInterval:       cfg.PerformanceInterval(),
		},
		model.ModeAccuracy: {
			RefineLandmarks:        cfg.AccuracyRefine,
			MinDetectionConfidence: cfg.AccuracyMinDetection,
			MinTrackingConfidence:  cfg.AccuracyMinTracking,
			Width:                  cfg.AccuracyWidth,
			Height:                 cfg.AccuracyHeight,
			AnalysisInterval:       cfg.AccuracyInterval(),
		},
	}
}

// SourceConfig is the landmark source tuning for p. One face only.
func (p Profile) SourceConfig(fps int) landmark.Config {
	return landmark.Config{
		MaxFaces:               1,
		RefineLandmarks:        p.RefineLandmarks,
		MinDetectionConfidence: p.MinDetectionConfidence,
		MinTrackingConfidence:  p.MinTrackingConfidence,
		Width:                  p.Width,
		Height:                 p.Height,
		FPS:                    fps,
	}
}
