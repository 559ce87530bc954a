// Package landmark provides face landmark producers. A Source pushes one
// frame per processed video frame to its Handler; a nil frame means no face.
package landmark

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/visionauth/internal/domain/model"
)

// Sentinel kinds for landmark source errors.
var (
	ErrUnavailable   = errors.New("landmark source unavailable")
	ErrInvalidConfig = errors.New("invalid landmark source config")
)

const defaultFPS = 30

// Handler receives each detector output. It is called from the source's own
// goroutine, never concurrently with itself.
type Handler func(frame *model.LandmarkFrame)

// Source is a running landmark producer.
type Source interface {
	// Start acquires the camera and model. Failures wrap ErrUnavailable.
	Start(ctx context.Context) error
	// Stop releases everything Start acquired and waits until no further
	// Handler call can begin.
	Stop(ctx context.Context) error
}

// Config describes what the detector should be tuned for.
type Config struct {
	MaxFaces               int
	RefineLandmarks        bool
	MinDetectionConfidence float64
	MinTrackingConfidence  float64
	Width                  int
	Height                 int
	FPS                    int
}

// Factory builds a source for one session.
type Factory func(cfg Config, onFrame Handler) (Source, error)

// Validate checks the config. Only single face tracking is supported.
func (c Config) Validate() error {
	if c.MaxFaces != 1 {
		return fmt.Errorf("%w: max faces must be 1, got %d", ErrInvalidConfig, c.MaxFaces)
	}
	if c.MinDetectionConfidence < 0 || c.MinDetectionConfidence > 1 {
		return fmt.Errorf("%w: min detection confidence %v out of range", ErrInvalidConfig, c.MinDetectionConfidence)
	}
	if c.MinTrackingConfidence < 0 || c.MinTrackingConfidence > 1 {
		return fmt.Errorf("%w: min tracking confidence %v out of range", ErrInvalidConfig, c.MinTrackingConfidence)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: capture size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.FPS < 0 {
		return fmt.Errorf("%w: fps %d", ErrInvalidConfig, c.FPS)
	}
	return nil
}

func (c Config) fps() int {
	if c.FPS <= 0 {
		return defaultFPS
	}
	return c.FPS
}
