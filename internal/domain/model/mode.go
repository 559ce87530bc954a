// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownValue is returned when a mode or feature name cannot be parsed.
var ErrUnknownValue = errors.New("unknown value")

// Mode trades render density and detection thresholds against cost.
type Mode string

// Modes.
const (
	ModePerformance Mode = "performance"
	ModeAccuracy    Mode = "accuracy"
)

// Modes lists every mode in display order.
func Modes() []Mode { return []Mode{ModePerformance, ModeAccuracy} }

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModePerformance || m == ModeAccuracy
}

// DisplayName is the label shown next to the live feed.
func (m Mode) DisplayName() string {
	switch m {
	case ModePerformance:
		return "Performance Mode"
	case ModeAccuracy:
		return "Precision Mode"
	default:
		return ""
	}
}

// ParseMode accepts the canonical names plus "precision" as an alias of accuracy.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "performance", "fast":
		return ModePerformance, nil
	case "accuracy", "precision":
		return ModeAccuracy, nil
	default:
		return "", fmt.Errorf("%w: mode %q", ErrUnknownValue, s)
	}
}

// Feature selects the analysis generator.
type Feature string

// Features.
const (
	FeatureEmotions Feature = "emotions"
	FeatureAge      Feature = "age"
)

// Features lists every feature in display order.
func Features() []Feature { return []Feature{FeatureEmotions, FeatureAge} }

// Valid reports whether f is a known feature.
func (f Feature) Valid() bool {
	return f == FeatureEmotions || f == FeatureAge
}

// DisplayName is the label shown next to the live feed.
func (f Feature) DisplayName() string {
	switch f {
	case FeatureEmotions:
		return "Emotion Recognition"
	case FeatureAge:
		return "Age Estimation"
	default:
		return ""
	}
}

// ParseFeature accepts the canonical names and their long forms.
func ParseFeature(s string) (Feature, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "emotions", "emotion", "emotion_detection":
		return FeatureEmotions, nil
	case "age", "age_estimation":
		return FeatureAge, nil
	default:
		return "", fmt.Errorf("%w: feature %q", ErrUnknownValue, s)
	}
}
