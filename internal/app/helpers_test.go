package app_test

import (
	"context"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/visionauth/internal/adapters/landmark"
	"github.com/okian/visionauth/internal/app"
	"github.com/okian/visionauth/internal/domain/analysis"
	"github.com/okian/visionauth/internal/domain/model"
	"github.com/okian/visionauth/internal/domain/topology"
	"github.com/okian/visionauth/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

// identityFrame spreads all model points over the unit square.
func identityFrame() *model.LandmarkFrame {
	pts := make([]model.Point, topology.ModelPoints)
	for i := range pts {
		r := 0.4 * math.Sqrt((float64(i)+0.5)/float64(len(pts)))
		a := float64(i) * 2.399963229728653
		pts[i] = model.Point{X: 0.5 + r*math.Cos(a), Y: 0.5 + r*math.Sin(a)}
	}
	return &model.LandmarkFrame{Points: pts, Seq: 1}
}

// fakeSource emits its frames synchronously from Start.
type fakeSource struct {
	onFrame  landmark.Handler
	emit     []*model.LandmarkFrame
	startErr error

	starts atomic.Int32
	stops  atomic.Int32
}

func (s *fakeSource) Start(context.Context) error {
	s.starts.Add(1)
	if s.startErr != nil {
		return s.startErr
	}
	for _, f := range s.emit {
		s.onFrame(f)
	}
	return nil
}

func (s *fakeSource) Stop(context.Context) error {
	s.stops.Add(1)
	return nil
}

// fakeFactory records every source it builds.
type fakeFactory struct {
	mu       sync.Mutex
	emit     []*model.LandmarkFrame
	startErr error
	configs  []landmark.Config
	sources  []*fakeSource
}

func (f *fakeFactory) build(cfg landmark.Config, onFrame landmark.Handler) (landmark.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	src := &fakeSource{onFrame: onFrame, emit: f.emit, startErr: f.startErr}
	f.configs = append(f.configs, cfg)
	f.sources = append(f.sources, src)
	return src, nil
}

func (f *fakeFactory) last() *fakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sources) == 0 {
		return nil
	}
	return f.sources[len(f.sources)-1]
}

func (f *fakeFactory) built() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sources)
}

// sinkLog keeps every display update.
type sinkLog struct {
	mu      sync.Mutex
	updates []model.DisplayUpdate
}

func (l *sinkLog) Publish(_ context.Context, u model.DisplayUpdate) {
	l.mu.Lock()
	l.updates = append(l.updates, u)
	l.mu.Unlock()
}

func (l *sinkLog) all() []model.DisplayUpdate {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.DisplayUpdate(nil), l.updates...)
}

func (l *sinkLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.updates)
}

// firstResult waits for an update carrying a readout.
func (l *sinkLog) firstResult(timeout time.Duration) (model.DisplayUpdate, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, u := range l.all() {
			if u.ResultLabel != "" {
				return u, true
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	return model.DisplayUpdate{}, false
}

func seeded(f model.Feature) (analysis.Generator, error) {
	return analysis.ForFeature(f, analysis.WithSeed(7))
}

// fastProfiles keeps the mode difference but ticks quickly.
func fastProfiles() app.Profiles {
	p := app.DefaultProfiles()
	perf := p[model.ModePerformance]
	perf.AnalysisInterval = 5 * time.Millisecond
	acc := p[model.ModeAccuracy]
	acc.AnalysisInterval = 10 * time.Millisecond
	p[model.ModePerformance] = perf
	p[model.ModeAccuracy] = acc
	return p
}
