package landmark

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/visionauth/internal/domain/topology"
	"github.com/okian/visionauth/pkg/logger"
)

// SyntheticSource emits generated faces at the configured frame rate. It
// stands in for a camera and detector in demos and tests.
type SyntheticSource struct {
	cfg     Config
	onFrame Handler

	dropEvery int
	missing   []int
	failStart error
	logger    logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	seq atomic.Uint64
}

// SyntheticOption configures a SyntheticSource.
type SyntheticOption func(*SyntheticSource)

// WithDropEvery makes every n-th frame a no-face frame.
func WithDropEvery(n int) SyntheticOption {
	return func(s *SyntheticSource) {
		if n > 0 {
			s.dropEvery = n
		}
	}
}

// WithMissingSections removes the named sections' points from every frame.
func WithMissingSections(names ...string) SyntheticOption {
	return func(s *SyntheticSource) {
		for _, name := range names {
			if sec, ok := topology.Lookup(name); ok {
				s.missing = append(s.missing, sec.Indices...)
			}
		}
	}
}

// WithStartError makes Start fail, simulating a denied camera.
func WithStartError(err error) SyntheticOption {
	return func(s *SyntheticSource) {
		s.failStart = err
	}
}

// WithSyntheticLogger sets the logger.
func WithSyntheticLogger(l logger.Logger) SyntheticOption {
	return func(s *SyntheticSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSynthetic creates a synthetic source.
func NewSynthetic(cfg Config, onFrame Handler, opts ...SyntheticOption) (*SyntheticSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if onFrame == nil {
		return nil, fmt.Errorf("%w: nil frame handler", ErrInvalidConfig)
	}
	s := &SyntheticSource{cfg: cfg, onFrame: onFrame}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("synthetic")
	}
	return s, nil
}

// SyntheticFactory adapts NewSynthetic to Factory.
func SyntheticFactory(opts ...SyntheticOption) Factory {
	return func(cfg Config, onFrame Handler) (Source, error) {
		return NewSynthetic(cfg, onFrame, opts...)
	}
}

// Start implements Source. Calling Start on a running source is a no-op.
func (s *SyntheticSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failStart != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, s.failStart)
	}
	if s.cancel != nil {
		return nil
	}

	// The first frame is delivered before Start returns so a fresh session
	// has a face to analyse right away.
	s.emit()

	// The loop outlives the Start call.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(runCtx, s.done)

	s.logger.Debug(ctx, "synthetic source started",
		logger.Int("fps", s.cfg.fps()),
		logger.Int("drop_every", s.dropEvery),
	)
	return nil
}

func (s *SyntheticSource) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.fps()))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.emit()
		}
	}
}

func (s *SyntheticSource) emit() {
	seq := s.seq.Add(1)
	if s.dropEvery > 0 && seq%uint64(s.dropEvery) == 0 {
		s.onFrame(nil)
		return
	}
	frame := SyntheticFace(seq)
	if len(s.missing) > 0 {
		frame = frame.Without(s.missing...)
	}
	s.onFrame(frame)
}

// Stop implements Source.
func (s *SyntheticSource) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop synthetic source: %w", ctx.Err())
	}
}

var _ Source = (*SyntheticSource)(nil)
