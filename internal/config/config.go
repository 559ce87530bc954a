// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Keys are flat and snake_case so they map 1:1 onto VISIONAUTH_* env vars.
//   - New returns defaults; Load layers a YAML file and the environment on top.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Landmark source kinds.
const (
	SourceSynthetic = "synthetic"
	SourceSidecar   = "sidecar"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CanvasWidth and CanvasHeight size the drawing surface (viewport pixels).
	CanvasWidth  int `koanf:"canvas_width"`
	CanvasHeight int `koanf:"canvas_height"`

	// Source selects the landmark source: synthetic or sidecar.
	Source string `koanf:"source"`
	// SidecarURL is the websocket URL of the landmark sidecar.
	SidecarURL string `koanf:"sidecar_url"`
	// CameraDevice is the capture device index used with the sidecar source.
	CameraDevice int `koanf:"camera_device"`
	// CameraFPS bounds the capture frame rate.
	CameraFPS int `koanf:"camera_fps"`

	// Performance mode profile.
	PerformanceRefine       bool    `koanf:"performance_refine"`
	PerformanceMinDetection float64 `koanf:"performance_min_detection"`
	PerformanceMinTracking  float64 `koanf:"performance_min_tracking"`
	PerformanceWidth        int     `koanf:"performance_width"`
	PerformanceHeight       int     `koanf:"performance_height"`
	PerformanceIntervalMS   int     `koanf:"performance_interval_ms"`

	// Accuracy mode profile.
	AccuracyRefine       bool    `koanf:"accuracy_refine"`
	AccuracyMinDetection float64 `koanf:"accuracy_min_detection"`
	AccuracyMinTracking  float64 `koanf:"accuracy_min_tracking"`
	AccuracyWidth        int     `koanf:"accuracy_width"`
	AccuracyHeight       int     `koanf:"accuracy_height"`
	AccuracyIntervalMS   int     `koanf:"accuracy_interval_ms"`

	// Mock analysis confidence heuristic.
	ConfidenceDetectingBase int `koanf:"confidence_detecting_base"`
	ConfidenceAbsentBase    int `koanf:"confidence_absent_base"`
	ConfidenceJitter        int `koanf:"confidence_jitter"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		LogFormat:    "text",
		Addr:         ":9080",
		CanvasWidth:  1280,
		CanvasHeight: 720,
		Source:       SourceSynthetic,
		SidecarURL:   "ws://127.0.0.1:9090/landmarks",
		CameraDevice: 0,
		CameraFPS:    30,

		PerformanceRefine:       false,
		PerformanceMinDetection: 0.3,
		PerformanceMinTracking:  0.2,
		PerformanceWidth:        640,
		PerformanceHeight:       480,
		PerformanceIntervalMS:   1000,

		AccuracyRefine:       true,
		AccuracyMinDetection: 0.5,
		AccuracyMinTracking:  0.3,
		AccuracyWidth:        1280,
		AccuracyHeight:       720,
		AccuracyIntervalMS:   2000,

		ConfidenceDetectingBase: 70,
		ConfidenceAbsentBase:    20,
		ConfidenceJitter:        30,
	}
}

// PerformanceInterval returns the analysis cadence for performance mode.
func (c *Config) PerformanceInterval() time.Duration {
	return time.Duration(c.PerformanceIntervalMS) * time.Millisecond
}

// AccuracyInterval returns the analysis cadence for accuracy mode.
func (c *Config) AccuracyInterval() time.Duration {
	return time.Duration(c.AccuracyIntervalMS) * time.Millisecond
}

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.CanvasWidth <= 0 || c.CanvasHeight <= 0:
		return fmt.Errorf("%w: canvas size must be positive, got %dx%d", ErrInvalidConfig, c.CanvasWidth, c.CanvasHeight)
	case c.PerformanceWidth <= 0 || c.PerformanceHeight <= 0:
		return fmt.Errorf("%w: performance resolution must be positive", ErrInvalidConfig)
	case c.AccuracyWidth <= 0 || c.AccuracyHeight <= 0:
		return fmt.Errorf("%w: accuracy resolution must be positive", ErrInvalidConfig)
	case c.PerformanceIntervalMS <= 0 || c.AccuracyIntervalMS <= 0:
		return fmt.Errorf("%w: analysis intervals must be positive", ErrInvalidConfig)
	case c.PerformanceIntervalMS >= c.AccuracyIntervalMS:
		return fmt.Errorf("%w: performance_interval_ms (%d) must be shorter than accuracy_interval_ms (%d)",
			ErrInvalidConfig, c.PerformanceIntervalMS, c.AccuracyIntervalMS)
	case c.ConfidenceJitter < 0:
		return fmt.Errorf("%w: confidence_jitter must not be negative", ErrInvalidConfig)
	case c.ConfidenceAbsentBase > c.ConfidenceDetectingBase:
		return fmt.Errorf("%w: confidence_absent_base must not exceed confidence_detecting_base", ErrInvalidConfig)
	}

	for name, v := range map[string]float64{
		"performance_min_detection": c.PerformanceMinDetection,
		"performance_min_tracking":  c.PerformanceMinTracking,
		"accuracy_min_detection":    c.AccuracyMinDetection,
		"accuracy_min_tracking":     c.AccuracyMinTracking,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidConfig, name, v)
		}
	}

	switch c.Source {
	case SourceSynthetic:
	case SourceSidecar:
		u, err := url.Parse(c.SidecarURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("%w: sidecar_url must be a ws:// or wss:// URL, got %q", ErrInvalidConfig, c.SidecarURL)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Source)
	}
	return nil
}
