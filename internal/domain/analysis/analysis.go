// Package analysis defines the contract for per-tick analysis readouts and
// ships placeholder generators that produce labels without inference.
package analysis

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/visionauth/internal/domain/model"
)

// Default heuristic constants.
const (
	defaultDetectingBase = 70
	defaultAbsentBase    = 20
	defaultJitter        = 30
	minAge               = 18
	ageSpan              = 50
	maxConfidence        = 100
)

// Emotions is the closed label set of the emotion mock.
var Emotions = []string{"Happy", "Sad", "Neutral", "Surprised", "Angry", "Confused", "Disgusted"}

// Input is everything a tick knows. The frame geometry is deliberately absent:
// placeholders only look at whether a face is being tracked.
type Input struct {
	Seq       uint64
	Detecting bool
	At        time.Time
}

// Generator produces one readout per tick.
type Generator interface {
	// Generate computes a result, honoring ctx for cancellation.
	Generate(ctx context.Context, in Input) (model.AnalysisResult, error)
	// Mock reports whether results are placeholders.
	Mock() bool
}

// Confidence is the placeholder confidence heuristic: a base that depends on
// detection presence plus uniform jitter in [0, Jitter), clamped to [0,100].
type Confidence struct {
	DetectingBase int
	AbsentBase    int
	Jitter        int
}

// DefaultConfidence returns the stock heuristic.
func DefaultConfidence() Confidence {
	return Confidence{DetectingBase: defaultDetectingBase, AbsentBase: defaultAbsentBase, Jitter: defaultJitter}
}

// Score draws one confidence value.
func (c Confidence) Score(rng *rand.Rand, detecting bool) int {
	v := c.AbsentBase
	if detecting {
		v = c.DetectingBase
	}
	if c.Jitter > 0 {
		v += rng.Intn(c.Jitter)
	}
	return clamp(v, 0, maxConfidence)
}

// Floor is the lowest value Score can return for the given presence.
func (c Confidence) Floor(detecting bool) int {
	if detecting {
		return clamp(c.DetectingBase, 0, maxConfidence)
	}
	return clamp(c.AbsentBase, 0, maxConfidence)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Option applies a configuration option to a mock generator.
type Option func(*mock)

// WithRand sets the random source, mostly for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(m *mock) {
		if rng != nil {
			m.rng = rng
		}
	}
}

// WithSeed seeds a private random source.
func WithSeed(seed int64) Option {
	return func(m *mock) {
		m.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // placeholder output, not security relevant
	}
}

// WithConfidence overrides the confidence heuristic.
func WithConfidence(c Confidence) Option {
	return func(m *mock) {
		m.confidence = c
	}
}

// mock holds what both placeholder generators share.
type mock struct {
	mu         sync.Mutex
	rng        *rand.Rand
	confidence Confidence
	label      func(rng *rand.Rand) string
}

func newMock(label func(*rand.Rand) string, opts ...Option) *mock {
	m := &mock{
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // placeholder output
		confidence: DefaultConfidence(),
		label:      label,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *mock) Mock() bool { return true }

func (m *mock) Generate(ctx context.Context, in Input) (model.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return model.AnalysisResult{}, fmt.Errorf("context cancelled: %w", err)
	}
	m.mu.Lock()
	label := m.label(m.rng)
	conf := m.confidence.Score(m.rng, in.Detecting)
	m.mu.Unlock()

	at := in.At
	if at.IsZero() {
		at = time.Now()
	}
	return model.AnalysisResult{Label: label, ConfidencePercent: conf, Seq: in.Seq, At: at}, nil
}

// EmotionGenerator draws a label uniformly from Emotions.
type EmotionGenerator struct{ *mock }

// NewEmotionGenerator creates the emotion placeholder.
func NewEmotionGenerator(opts ...Option) *EmotionGenerator {
	return &EmotionGenerator{newMock(func(rng *rand.Rand) string {
		return Emotions[rng.Intn(len(Emotions))]
	}, opts...)}
}

// AgeGenerator draws an age in [18, 67] and formats it as "NN years".
type AgeGenerator struct{ *mock }

// NewAgeGenerator creates the age placeholder.
func NewAgeGenerator(opts ...Option) *AgeGenerator {
	return &AgeGenerator{newMock(func(rng *rand.Rand) string {
		return FormatAge(minAge + rng.Intn(ageSpan))
	}, opts...)}
}

// FormatAge renders an age readout.
func FormatAge(years int) string {
	return fmt.Sprintf("%d years", years)
}

// ForFeature returns the placeholder generator for f.
func ForFeature(f model.Feature, opts ...Option) (Generator, error) {
	switch f {
	case model.FeatureEmotions:
		return NewEmotionGenerator(opts...), nil
	case model.FeatureAge:
		return NewAgeGenerator(opts...), nil
	default:
		return nil, fmt.Errorf("%w: feature %q", model.ErrUnknownValue, f)
	}
}
