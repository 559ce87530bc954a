// Package app hosts the session controller: the state machine that owns the
// landmark source, renders every frame and runs the mock analysis ticks.
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/visionauth/internal/adapters/landmark"
	"github.com/okian/visionauth/internal/domain/analysis"
	"github.com/okian/visionauth/internal/domain/model"
	"github.com/okian/visionauth/internal/domain/render"
	"github.com/okian/visionauth/pkg/logger"
	"github.com/okian/visionauth/pkg/metrics"
)

const defaultFPS = 30

// DisplaySink receives the readout after every visible change.
type DisplaySink interface {
	Publish(ctx context.Context, u model.DisplayUpdate)
}

// DisplayFunc adapts a function to DisplaySink.
type DisplayFunc func(ctx context.Context, u model.DisplayUpdate)

// Publish implements DisplaySink.
func (f DisplayFunc) Publish(ctx context.Context, u model.DisplayUpdate) { f(ctx, u) }

// GeneratorFunc picks the analysis generator for a feature.
type GeneratorFunc func(model.Feature) (analysis.Generator, error)

// Snapshot is a consistent read of the controller.
type Snapshot struct {
	State     model.SessionState
	SessionID string
	Mode      model.Mode
	Feature   model.Feature
	Detecting bool
	Result    *model.AnalysisResult
	Mock      bool
}

// selection is replaced, never mutated.
type selection struct {
	mode    model.Mode
	feature model.Feature
}

// session is one Start..Stop generation. Callbacks capture it and no-op
// once it is no longer the active one.
type session struct {
	id        string
	mode      model.Mode
	feature   model.Feature
	profile   Profile
	generator analysis.Generator
	started   time.Time
}

// Controller is safe for concurrent use. Transitions are serialized; frame
// callbacks and analysis ticks run on their own goroutines and only read
// atomics plus the render lock.
type Controller struct {
	canvas   render.Canvas
	sink     DisplaySink
	factory  landmark.Factory
	renderer *render.Renderer

	profiles     Profiles
	generatorFor GeneratorFunc
	fps          int
	now          func() time.Time
	logger       logger.Logger

	mu     sync.Mutex
	source landmark.Source
	task   *PeriodicTask

	state     atomic.Int32
	sel       atomic.Pointer[selection]
	active    atomic.Pointer[session]
	lastFrame atomic.Pointer[model.LandmarkFrame]
	result    atomic.Pointer[model.AnalysisResult]
	detecting atomic.Bool

	// renderMu serializes render passes with the teardown clear.
	renderMu sync.Mutex
}

// Option configures a Controller.
type Option func(*Controller)

// WithProfiles overrides the per-mode profiles.
func WithProfiles(p Profiles) Option {
	return func(c *Controller) {
		if len(p) > 0 {
			c.profiles = p
		}
	}
}

// WithGenerators overrides how analysis generators are built.
func WithGenerators(f GeneratorFunc) Option {
	return func(c *Controller) {
		if f != nil {
			c.generatorFor = f
		}
	}
}

// WithRenderer sets the wireframe renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(c *Controller) {
		if r != nil {
			c.renderer = r
		}
	}
}

// WithFPS sets the frame rate requested from landmark sources.
func WithFPS(fps int) Option {
	return func(c *Controller) {
		if fps > 0 {
			c.fps = fps
		}
	}
}

// WithClock replaces time.Now for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an idle controller drawing on canvas and reporting to sink.
func New(canvas render.Canvas, sink DisplaySink, factory landmark.Factory, opts ...Option) *Controller {
	c := &Controller{
		canvas:   canvas,
		sink:     sink,
		factory:  factory,
		renderer: render.New(),
		profiles: DefaultProfiles(),
		generatorFor: func(f model.Feature) (analysis.Generator, error) {
			return analysis.ForFeature(f)
		},
		fps: defaultFPS,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("session")
	}
	if c.sink == nil {
		c.sink = DisplayFunc(func(context.Context, model.DisplayUpdate) {})
	}
	c.sel.Store(&selection{})
	return c
}

// State returns the current state.
func (c *Controller) State() model.SessionState {
	return model.SessionState(c.state.Load())
}

func (c *Controller) setState(s model.SessionState) {
	c.state.Store(int32(s))
	metrics.UpdateSessionState(int(s))
}

// LastFrame returns the last frame seen by the running session, or nil.
func (c *Controller) LastFrame() *model.LandmarkFrame {
	return c.lastFrame.Load()
}

// Snapshot returns the current state, selections and readout.
func (c *Controller) Snapshot() Snapshot {
	sel := c.sel.Load()
	s := Snapshot{
		State:     c.State(),
		Mode:      sel.mode,
		Feature:   sel.feature,
		Detecting: c.detecting.Load(),
		Result:    c.result.Load(),
	}
	if sess := c.active.Load(); sess != nil {
		s.SessionID = sess.id
		s.Mock = sess.generator.Mock()
	}
	return s
}

// SelectMode sets the pending mode. Allowed only while no session is active;
// the last selection wins.
func (c *Controller) SelectMode(ctx context.Context, mode model.Mode) error {
	const op = "select mode"
	if !mode.Valid() {
		return opError(op, ErrInvalidArgument, fmt.Errorf("%w: mode %q", model.ErrUnknownValue, mode))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.State(); st.Active() {
		return opError(op, ErrInvalidTransition, fmt.Errorf("session is %s", st))
	}
	sel := *c.sel.Load()
	sel.mode = mode
	c.sel.Store(&sel)
	c.setState(model.StateModeSelected)

	c.logger.Debug(ctx, "mode selected", logger.String("mode", string(mode)))
	c.publish(ctx)
	return nil
}

// SelectFeature sets the pending feature with the same rules as SelectMode.
func (c *Controller) SelectFeature(ctx context.Context, feature model.Feature) error {
	const op = "select feature"
	if !feature.Valid() {
		return opError(op, ErrInvalidArgument, fmt.Errorf("%w: feature %q", model.ErrUnknownValue, feature))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.State(); st.Active() {
		return opError(op, ErrInvalidTransition, fmt.Errorf("session is %s", st))
	}
	sel := *c.sel.Load()
	sel.feature = feature
	c.sel.Store(&sel)
	c.setState(model.StateModeSelected)

	c.logger.Debug(ctx, "feature selected", logger.String("feature", string(feature)))
	c.publish(ctx)
	return nil
}

// Start acquires a landmark source for the selected mode and begins the
// analysis ticks. Without both selections it fails with
// ErrConfigurationIncomplete and changes nothing. When the source cannot be
// acquired it fails with ErrSourceUnavailable and the controller is Idle.
func (c *Controller) Start(ctx context.Context) error {
	const op = "start"

	c.mu.Lock()
	defer c.mu.Unlock()

	if st := c.State(); st.Active() {
		return opError(op, ErrInvalidTransition, fmt.Errorf("session is %s", st))
	}
	sel := c.sel.Load()
	if sel.mode == "" || sel.feature == "" {
		metrics.RecordSessionFailure("configuration_incomplete")
		return opError(op, ErrConfigurationIncomplete, fmt.Errorf("mode=%q feature=%q", sel.mode, sel.feature))
	}
	profile, ok := c.profiles[sel.mode]
	if !ok {
		metrics.RecordSessionFailure("configuration_incomplete")
		return opError(op, ErrConfigurationIncomplete, fmt.Errorf("no profile for mode %q", sel.mode))
	}
	gen, err := c.generatorFor(sel.feature)
	if err != nil {
		metrics.RecordSessionFailure("configuration_incomplete")
		return opError(op, ErrConfigurationIncomplete, err)
	}

	sess := &session{
		id:        uuid.NewString(),
		mode:      sel.mode,
		feature:   sel.feature,
		profile:   profile,
		generator: gen,
		started:   c.now(),
	}
	c.setState(model.StateInitializing)
	c.active.Store(sess)
	c.publish(ctx)

	src, err := c.acquire(ctx, sess)
	if err != nil {
		c.active.Store(nil)
		c.teardownCanvas()
		c.setState(model.StateIdle)
		metrics.RecordSessionFailure("source_unavailable")
		c.logger.Warn(ctx, "session start failed",
			logger.String("session_id", sess.id),
			logger.Error(err),
		)
		c.publish(ctx)
		return opError(op, ErrSourceUnavailable, err)
	}

	c.source = src
	c.setState(model.StateRunning)
	c.task = StartPeriodic(context.WithoutCancel(ctx), profile.AnalysisInterval, func(ctx context.Context, seq uint64) {
		c.tick(ctx, sess, seq)
	})

	metrics.RecordSessionStart(string(sess.mode), string(sess.feature))
	c.logger.Info(ctx, "session started",
		logger.String("session_id", sess.id),
		logger.String("mode", string(sess.mode)),
		logger.String("feature", string(sess.feature)),
		logger.Duration("analysis_interval", profile.AnalysisInterval),
		logger.Int("width", profile.Width),
		logger.Int("height", profile.Height),
	)
	c.publish(ctx)
	return nil
}

// acquire builds and starts a source. A source that failed to start is
// stopped again so nothing it grabbed is retained.
func (c *Controller) acquire(ctx context.Context, sess *session) (landmark.Source, error) {
	if c.factory == nil {
		return nil, fmt.Errorf("no landmark source configured")
	}
	cfg := sess.profile.SourceConfig(c.fps)
	src, err := c.factory(cfg, func(f *model.LandmarkFrame) {
		c.onFrame(sess, f)
	})
	if err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}
	if err := src.Start(ctx); err != nil {
		if stopErr := src.Stop(context.WithoutCancel(ctx)); stopErr != nil {
			c.logger.Warn(ctx, "release failed source", logger.Error(stopErr))
		}
		return nil, fmt.Errorf("start source: %w", err)
	}
	return src, nil
}

// Stop ends a running session: no tick and no frame callback runs after it
// returns, the canvas is blank and the controller is Idle. Outside Running
// it does nothing.
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != model.StateRunning {
		return
	}
	c.stopLocked(ctx)
}

func (c *Controller) stopLocked(ctx context.Context) {
	c.setState(model.StateStopping)
	sess := c.active.Swap(nil)

	c.task.Cancel()
	c.task = nil

	if c.source != nil {
		if err := c.source.Stop(context.WithoutCancel(ctx)); err != nil {
			metrics.RecordSourceError("session", "stop")
			c.logger.Warn(ctx, "source stop failed", logger.Error(err))
		}
		c.source = nil
	}

	c.teardownCanvas()
	c.result.Store(nil)
	c.setState(model.StateIdle)

	fields := []logger.Field{}
	if sess != nil {
		fields = append(fields,
			logger.String("session_id", sess.id),
			logger.Duration("uptime", c.now().Sub(sess.started)),
		)
	}
	c.logger.Info(ctx, "session stopped", fields...)
	c.publish(ctx)
}

// teardownCanvas blanks the surface and forgets the last frame.
func (c *Controller) teardownCanvas() {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	c.lastFrame.Store(nil)
	c.detecting.Store(false)
	metrics.UpdateDetecting(false)
	c.canvas.Clear()
	if p, ok := c.canvas.(render.Presenter); ok {
		p.Present()
	}
}

// Reset stops any session and clears both selections.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == model.StateRunning {
		c.stopLocked(ctx)
	}
	c.sel.Store(&selection{})
	c.setState(model.StateIdle)
	c.logger.Debug(ctx, "selections reset")
	c.publish(ctx)
}

type resizer interface {
	Resize(w, h int)
}

// Resize changes the canvas viewport and redraws the last frame.
func (c *Controller) Resize(w, h int) error {
	r, ok := c.canvas.(resizer)
	if !ok {
		return opError("resize", ErrUnsupported, fmt.Errorf("canvas %T cannot resize", c.canvas))
	}
	if w <= 0 || h <= 0 {
		return opError("resize", ErrInvalidArgument, fmt.Errorf("size %dx%d", w, h))
	}

	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	r.Resize(w, h)
	if sess := c.active.Load(); sess != nil {
		c.draw(sess, c.lastFrame.Load())
	}
	return nil
}

// onFrame is the landmark callback for sess.
func (c *Controller) onFrame(sess *session, frame *model.LandmarkFrame) {
	if c.active.Load() != sess {
		metrics.RecordFrameStale()
		return
	}
	detecting := !frame.Empty()
	metrics.RecordFrameReceived(detecting)

	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	// Stop may have won the race for the lock.
	if c.active.Load() != sess {
		metrics.RecordFrameStale()
		return
	}

	if detecting {
		c.lastFrame.Store(frame)
	} else {
		c.lastFrame.Store(nil)
	}
	c.draw(sess, frame)

	if c.detecting.Swap(detecting) != detecting {
		metrics.UpdateDetecting(detecting)
		c.publish(context.Background())
	}
}

// draw must hold renderMu.
func (c *Controller) draw(sess *session, frame *model.LandmarkFrame) {
	start := time.Now()
	st := c.renderer.Render(c.canvas, frame, sess.mode)
	if p, ok := c.canvas.(render.Presenter); ok {
		p.Present()
	}
	metrics.RecordFrameRendered(float64(time.Since(start).Microseconds())/1000, st.Segments)
}

// tick is one analysis step for sess.
func (c *Controller) tick(ctx context.Context, sess *session, seq uint64) {
	if c.active.Load() != sess || c.State() != model.StateRunning {
		return
	}
	in := analysis.Input{
		Seq:       seq,
		Detecting: !c.lastFrame.Load().Empty(),
		At:        c.now(),
	}
	res, err := sess.generator.Generate(ctx, in)
	if err != nil {
		metrics.RecordErrorByComponent("analysis", "generate")
		c.logger.Warn(ctx, "analysis tick failed", logger.Error(err), logger.Uint64("seq", seq))
		return
	}
	c.result.Store(&res)
	metrics.RecordAnalysisTick(string(sess.feature), string(sess.mode), res.ConfidencePercent)
	c.logger.Debug(ctx, "analysis tick",
		logger.Uint64("seq", seq),
		logger.String("label", res.Label),
		logger.Int("confidence", res.ConfidencePercent),
		logger.Bool("detecting", in.Detecting),
	)
	c.publish(ctx)
}

// publish sends the current readout to the display sink.
func (c *Controller) publish(ctx context.Context) {
	snap := c.Snapshot()
	u := model.DisplayUpdate{
		SessionID:   snap.SessionID,
		State:       snap.State.String(),
		Mode:        snap.Mode,
		ModeName:    snap.Mode.DisplayName(),
		Feature:     snap.Feature,
		FeatureName: snap.Feature.DisplayName(),
		Detecting:   snap.Detecting,
		Mock:        snap.Mock,
	}
	if snap.Result != nil {
		u.ResultLabel = snap.Result.Label
		u.ConfidencePercent = snap.Result.ConfidencePercent
	}
	c.sink.Publish(ctx, u)
}
