package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/visionauth/internal/adapters/canvas"
	"github.com/okian/visionauth/internal/adapters/landmark"
	"github.com/okian/visionauth/internal/app"
	"github.com/okian/visionauth/internal/domain/analysis"
	"github.com/okian/visionauth/internal/domain/model"
	"github.com/okian/visionauth/internal/domain/render"
	"github.com/okian/visionauth/internal/domain/topology"
	. "github.com/smartystreets/goconvey/convey"
)

type fixture struct {
	ctrl    *app.Controller
	rec     *canvas.Recorder
	sink    *sinkLog
	factory *fakeFactory
}

func newFixture(emit ...*model.LandmarkFrame) *fixture {
	fx := &fixture{
		rec:     canvas.NewRecorder(640, 480),
		sink:    &sinkLog{},
		factory: &fakeFactory{emit: emit},
	}
	fx.ctrl = app.New(fx.rec, fx.sink, fx.factory.build,
		app.WithGenerators(seeded),
		app.WithProfiles(fastProfiles()),
	)
	return fx
}

func (fx *fixture) selectBoth(mode model.Mode, feature model.Feature) {
	So(fx.ctrl.SelectMode(context.Background(), mode), ShouldBeNil)
	So(fx.ctrl.SelectFeature(context.Background(), feature), ShouldBeNil)
}

func TestScenarioA_StartRendersAndTicks(t *testing.T) {
	Convey("Given performance mode with emotion detection and a source emitting a full face", t, func() {
		fx := newFixture(identityFrame())
		fx.selectBoth(model.ModePerformance, model.FeatureEmotions)
		ctx := context.Background()

		Convey("When the session starts", func() {
			So(fx.ctrl.Start(ctx), ShouldBeNil)
			defer fx.ctrl.Stop(ctx)

			Convey("Then it is running with one render pass and a real bounding box", func() {
				So(fx.ctrl.State(), ShouldEqual, model.StateRunning)
				So(fx.rec.Clears(), ShouldEqual, 1)
				So(fx.rec.Count(canvas.OpRect), ShouldEqual, 1)
				box := fx.rec.Ops()[0].Rect
				So(box, ShouldNotBeNil)
				So(box.Empty(), ShouldBeFalse)
				So(fx.rec.Count(canvas.OpFillCircle), ShouldEqual, len(topology.PerformanceKeyPoints()))
				So(fx.ctrl.LastFrame(), ShouldNotBeNil)
			})

			Convey("Then the source is tuned for performance", func() {
				So(fx.factory.configs, ShouldHaveLength, 1)
				cfg := fx.factory.configs[0]
				So(cfg.MaxFaces, ShouldEqual, 1)
				So(cfg.RefineLandmarks, ShouldBeFalse)
				So(cfg.MinDetectionConfidence, ShouldEqual, 0.3)
				So(cfg.Width, ShouldEqual, 640)
			})

			Convey("Then the first tick reports an emotion at detecting confidence", func() {
				u, ok := fx.sink.firstResult(time.Second)
				So(ok, ShouldBeTrue)
				So(analysis.Emotions, ShouldContain, u.ResultLabel)
				So(u.ConfidencePercent, ShouldBeGreaterThanOrEqualTo, analysis.DefaultConfidence().Floor(true))
				So(u.ConfidencePercent, ShouldBeLessThanOrEqualTo, 100)
				So(u.Detecting, ShouldBeTrue)
				So(u.Mock, ShouldBeTrue)
				So(u.SessionID, ShouldNotBeEmpty)
				So(u.ModeName, ShouldEqual, "Performance Mode")
			})
		})
	})
}

func TestScenarioB_StartWithoutFeature(t *testing.T) {
	Convey("Given only a mode was selected", t, func() {
		fx := newFixture(identityFrame())
		So(fx.ctrl.SelectMode(context.Background(), model.ModeAccuracy), ShouldBeNil)

		Convey("When start is attempted", func() {
			err := fx.ctrl.Start(context.Background())

			Convey("Then it reports incomplete configuration and acquires nothing", func() {
				So(errors.Is(err, app.ErrConfigurationIncomplete), ShouldBeTrue)
				So(fx.ctrl.State(), ShouldEqual, model.StateModeSelected)
				So(fx.factory.built(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given nothing was selected", t, func() {
		fx := newFixture()
		err := fx.ctrl.Start(context.Background())

		So(errors.Is(err, app.ErrConfigurationIncomplete), ShouldBeTrue)
		So(fx.ctrl.State(), ShouldEqual, model.StateIdle)
	})
}

func TestScenarioC_SourceFails(t *testing.T) {
	Convey("Given a source whose acquisition fails", t, func() {
		fx := newFixture(identityFrame())
		fx.factory.startErr = errors.New("camera permission denied")
		fx.selectBoth(model.ModeAccuracy, model.FeatureAge)

		Convey("When the session starts", func() {
			err := fx.ctrl.Start(context.Background())
			time.Sleep(30 * time.Millisecond)

			Convey("Then it reports source unavailable, is idle and never ticks", func() {
				So(errors.Is(err, app.ErrSourceUnavailable), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "camera permission denied")
				So(fx.ctrl.State(), ShouldEqual, model.StateIdle)
				So(fx.ctrl.Snapshot().Result, ShouldBeNil)
				for _, u := range fx.sink.all() {
					So(u.ResultLabel, ShouldBeEmpty)
				}
			})

			Convey("Then the half started source was released", func() {
				So(fx.factory.last().stops.Load(), ShouldEqual, 1)
			})

			Convey("Then a retry is possible", func() {
				fx.factory.startErr = nil
				So(fx.ctrl.Start(context.Background()), ShouldBeNil)
				So(fx.ctrl.State(), ShouldEqual, model.StateRunning)
				fx.ctrl.Stop(context.Background())
			})
		})
	})
}

func TestScenarioD_MissingMouth(t *testing.T) {
	Convey("Given accuracy mode and a frame without the mouth", t, func() {
		frame := identityFrame().Without(topology.Mouth()...)
		fx := newFixture(frame)
		fx.selectBoth(model.ModeAccuracy, model.FeatureEmotions)

		So(fx.ctrl.Start(context.Background()), ShouldBeNil)
		defer fx.ctrl.Stop(context.Background())

		Convey("Then the mouth outline is omitted and other sections are drawn", func() {
			So(fx.rec.Segments(topology.LipsOuter), ShouldEqual, 0)
			So(fx.rec.Segments(topology.LipsInner), ShouldEqual, 0)
			for _, name := range []string{topology.Contour, topology.LeftEye, topology.RightEye, topology.NoseBridge, topology.LeftEyebrow} {
				So(fx.rec.Segments(name), ShouldBeGreaterThan, 0)
			}
			So(fx.rec.Count(canvas.OpRect), ShouldEqual, 1)
			So(fx.ctrl.State(), ShouldEqual, model.StateRunning)
		})
	})
}

func TestStartStopTeardown(t *testing.T) {
	Convey("Given every mode and feature pair", t, func() {
		for _, mode := range model.Modes() {
			for _, feature := range model.Features() {
				fx := newFixture(identityFrame())
				fx.selectBoth(mode, feature)
				ctx := context.Background()

				So(fx.ctrl.Start(ctx), ShouldBeNil)
				fx.ctrl.Stop(ctx)

				src := fx.factory.last()
				So(fx.ctrl.State(), ShouldEqual, model.StateIdle)
				So(src.starts.Load(), ShouldEqual, 1)
				So(src.stops.Load(), ShouldEqual, 1)
				So(fx.ctrl.LastFrame(), ShouldBeNil)
				So(fx.ctrl.Snapshot().Result, ShouldBeNil)
				So(fx.ctrl.Snapshot().SessionID, ShouldBeEmpty)
				So(fx.rec.Ops(), ShouldBeEmpty)

				// Nothing keeps publishing once stopped.
				n := fx.sink.count()
				time.Sleep(25 * time.Millisecond)
				So(fx.sink.count(), ShouldEqual, n)

				last := fx.sink.all()[n-1]
				So(last.State, ShouldEqual, "idle")
				So(last.Detecting, ShouldBeFalse)

				// Stopping again is a no-op.
				fx.ctrl.Stop(ctx)
				So(src.stops.Load(), ShouldEqual, 1)
				So(fx.sink.count(), ShouldEqual, n)
			}
		}
	})
}

func TestScenarioA_SyntheticSource(t *testing.T) {
	Convey("Given performance mode with emotion detection on the synthetic source", t, func() {
		rec := canvas.NewRecorder(640, 480)
		sink := &sinkLog{}
		ctrl := app.New(rec, sink, landmark.SyntheticFactory(),
			app.WithGenerators(seeded),
			app.WithProfiles(fastProfiles()),
		)
		ctx := context.Background()
		So(ctrl.SelectMode(ctx, model.ModePerformance), ShouldBeNil)
		So(ctrl.SelectFeature(ctx, model.FeatureEmotions), ShouldBeNil)

		Convey("When the session starts", func() {
			So(ctrl.Start(ctx), ShouldBeNil)
			defer ctrl.Stop(ctx)

			Convey("Then a face is drawn before Start returns", func() {
				So(ctrl.State(), ShouldEqual, model.StateRunning)
				So(ctrl.LastFrame(), ShouldNotBeNil)
				So(rec.Count(canvas.OpRect), ShouldBeGreaterThanOrEqualTo, 1)
			})

			Convey("Then the first tick already sees the face", func() {
				u, ok := sink.firstResult(time.Second)
				So(ok, ShouldBeTrue)
				So(analysis.Emotions, ShouldContain, u.ResultLabel)
				So(u.Detecting, ShouldBeTrue)
				So(u.ConfidencePercent, ShouldBeGreaterThanOrEqualTo, analysis.DefaultConfidence().Floor(true))
			})
		})
	})
}

func TestStopKeepsSelections(t *testing.T) {
	Convey("Given a running session", t, func() {
		fx := newFixture(identityFrame())
		fx.selectBoth(model.ModeAccuracy, model.FeatureAge)
		ctx := context.Background()
		So(fx.ctrl.Start(ctx), ShouldBeNil)

		Convey("When it is stopped", func() {
			fx.ctrl.Stop(ctx)
			snap := fx.ctrl.Snapshot()

			Convey("Then it is idle with both selections kept", func() {
				So(snap.State, ShouldEqual, model.StateIdle)
				So(snap.Mode, ShouldEqual, model.ModeAccuracy)
				So(snap.Feature, ShouldEqual, model.FeatureAge)
				So(snap.Result, ShouldBeNil)
				So(snap.Detecting, ShouldBeFalse)
			})

			Convey("Then it can start again without selecting", func() {
				So(fx.ctrl.Start(ctx), ShouldBeNil)
				So(fx.ctrl.State(), ShouldEqual, model.StateRunning)
				fx.ctrl.Stop(ctx)
			})
		})
	})
}

func TestStopWhileIdle(t *testing.T) {
	Convey("Given an idle controller", t, func() {
		fx := newFixture()

		Convey("When stop is called", func() {
			fx.ctrl.Stop(context.Background())

			Convey("Then nothing happens", func() {
				So(fx.ctrl.State(), ShouldEqual, model.StateIdle)
				So(fx.sink.count(), ShouldEqual, 0)
				So(fx.rec.Clears(), ShouldEqual, 0)
			})
		})
	})
}

func TestStaleFrameAfterStop(t *testing.T) {
	Convey("Given a session that was stopped", t, func() {
		fx := newFixture(identityFrame())
		fx.selectBoth(model.ModeAccuracy, model.FeatureEmotions)
		So(fx.ctrl.Start(context.Background()), ShouldBeNil)
		src := fx.factory.last()
		fx.ctrl.Stop(context.Background())
		clears := fx.rec.Clears()

		Convey("When the old source delivers a late frame", func() {
			src.onFrame(identityFrame())

			Convey("Then it is ignored", func() {
				So(fx.rec.Clears(), ShouldEqual, clears)
				So(fx.rec.Ops(), ShouldBeEmpty)
				So(fx.ctrl.LastFrame(), ShouldBeNil)
			})
		})

		Convey("When a new session starts and the old source delivers", func() {
			So(fx.ctrl.Start(context.Background()), ShouldBeNil)
			defer fx.ctrl.Stop(context.Background())
			current := fx.ctrl.LastFrame()
			src.onFrame(identityFrame().Without(topology.Mouth()...))

			Convey("Then the new session is untouched", func() {
				So(fx.ctrl.LastFrame(), ShouldPointTo, current)
			})
		})
	})
}

func TestDetectionStatus(t *testing.T) {
	Convey("Given a running session", t, func() {
		fx := newFixture(identityFrame())
		fx.selectBoth(model.ModePerformance, model.FeatureAge)
		So(fx.ctrl.Start(context.Background()), ShouldBeNil)
		defer fx.ctrl.Stop(context.Background())
		src := fx.factory.last()
		So(fx.ctrl.Snapshot().Detecting, ShouldBeTrue)

		Convey("When the face is lost", func() {
			src.onFrame(nil)

			Convey("Then detection drops, the canvas is blank and the last frame is gone", func() {
				So(fx.ctrl.Snapshot().Detecting, ShouldBeFalse)
				So(fx.ctrl.LastFrame(), ShouldBeNil)
				So(fx.rec.Ops(), ShouldBeEmpty)

				var sawLost bool
				for _, u := range fx.sink.all() {
					if u.State == "running" && !u.Detecting {
						sawLost = true
					}
				}
				So(sawLost, ShouldBeTrue)
			})
		})
	})
}

func TestSelectionRules(t *testing.T) {
	Convey("Given an idle controller", t, func() {
		fx := newFixture(identityFrame())
		ctx := context.Background()

		Convey("When selections are repeated", func() {
			So(fx.ctrl.SelectMode(ctx, model.ModePerformance), ShouldBeNil)
			So(fx.ctrl.SelectMode(ctx, model.ModeAccuracy), ShouldBeNil)
			So(fx.ctrl.SelectFeature(ctx, model.FeatureEmotions), ShouldBeNil)
			So(fx.ctrl.SelectFeature(ctx, model.FeatureAge), ShouldBeNil)

			Convey("Then the last one wins", func() {
				snap := fx.ctrl.Snapshot()
				So(snap.State, ShouldEqual, model.StateModeSelected)
				So(snap.Mode, ShouldEqual, model.ModeAccuracy)
				So(snap.Feature, ShouldEqual, model.FeatureAge)
			})
		})

		Convey("When an unknown mode is selected", func() {
			err := fx.ctrl.SelectMode(ctx, model.Mode("turbo"))

			Convey("Then it is rejected as a bad argument", func() {
				So(errors.Is(err, app.ErrInvalidArgument), ShouldBeTrue)
				So(errors.Is(err, model.ErrUnknownValue), ShouldBeTrue)
				So(fx.ctrl.State(), ShouldEqual, model.StateIdle)
			})
		})

		Convey("When selecting during a session", func() {
			fx.selectBoth(model.ModePerformance, model.FeatureEmotions)
			So(fx.ctrl.Start(ctx), ShouldBeNil)
			defer fx.ctrl.Stop(ctx)

			errMode := fx.ctrl.SelectMode(ctx, model.ModeAccuracy)
			errFeature := fx.ctrl.SelectFeature(ctx, model.FeatureAge)
			errStart := fx.ctrl.Start(ctx)

			Convey("Then the session keeps its settings", func() {
				So(errors.Is(errMode, app.ErrInvalidTransition), ShouldBeTrue)
				So(errors.Is(errFeature, app.ErrInvalidTransition), ShouldBeTrue)
				So(errors.Is(errStart, app.ErrInvalidTransition), ShouldBeTrue)
				snap := fx.ctrl.Snapshot()
				So(snap.Mode, ShouldEqual, model.ModePerformance)
				So(snap.Feature, ShouldEqual, model.FeatureEmotions)
				So(fx.factory.built(), ShouldEqual, 1)
			})
		})
	})
}

func TestReset(t *testing.T) {
	Convey("Given a running session", t, func() {
		fx := newFixture(identityFrame())
		fx.selectBoth(model.ModeAccuracy, model.FeatureAge)
		So(fx.ctrl.Start(context.Background()), ShouldBeNil)

		Convey("When reset", func() {
			fx.ctrl.Reset(context.Background())

			Convey("Then the session is stopped and the selections are cleared", func() {
				snap := fx.ctrl.Snapshot()
				So(snap.State, ShouldEqual, model.StateIdle)
				So(snap.Mode, ShouldEqual, model.Mode(""))
				So(snap.Feature, ShouldEqual, model.Feature(""))
				So(fx.factory.last().stops.Load(), ShouldEqual, 1)
				So(errors.Is(fx.ctrl.Start(context.Background()), app.ErrConfigurationIncomplete), ShouldBeTrue)
			})
		})
	})
}

func TestOnUserAction(t *testing.T) {
	Convey("Given a controller driven only by user actions", t, func() {
		fx := newFixture(identityFrame())
		ctx := context.Background()

		actions := []app.Action{
			{Kind: app.ActionSelectMode, Mode: model.ModePerformance},
			{Kind: app.ActionSelectFeature, Feature: model.FeatureEmotions},
			{Kind: app.ActionStart},
		}
		for _, a := range actions {
			So(fx.ctrl.OnUserAction(ctx, a), ShouldBeNil)
		}
		So(fx.ctrl.State(), ShouldEqual, model.StateRunning)

		So(fx.ctrl.OnUserAction(ctx, app.Action{Kind: app.ActionStop}), ShouldBeNil)
		So(fx.ctrl.State(), ShouldEqual, model.StateIdle)

		So(fx.ctrl.OnUserAction(ctx, app.Action{Kind: app.ActionReset}), ShouldBeNil)
		So(fx.ctrl.Snapshot().Mode, ShouldEqual, model.Mode(""))

		err := fx.ctrl.OnUserAction(ctx, app.Action{Kind: "dance"})
		So(errors.Is(err, app.ErrInvalidArgument), ShouldBeTrue)
	})
}

func TestConfidenceRange(t *testing.T) {
	Convey("Given sessions ticking quickly with and without a face", t, func() {
		for _, emit := range [][]*model.LandmarkFrame{{identityFrame()}, {nil}} {
			var mu sync.Mutex
			var results []model.DisplayUpdate
			sink := app.DisplayFunc(func(_ context.Context, u model.DisplayUpdate) {
				if u.ResultLabel != "" {
					mu.Lock()
					results = append(results, u)
					mu.Unlock()
				}
			})
			factory := &fakeFactory{emit: emit}
			ctrl := app.New(canvas.NewRecorder(320, 240), sink, factory.build, app.WithProfiles(fastProfiles()))
			So(ctrl.SelectMode(context.Background(), model.ModePerformance), ShouldBeNil)
			So(ctrl.SelectFeature(context.Background(), model.FeatureAge), ShouldBeNil)
			So(ctrl.Start(context.Background()), ShouldBeNil)
			time.Sleep(60 * time.Millisecond)
			ctrl.Stop(context.Background())

			mu.Lock()
			So(len(results), ShouldBeGreaterThan, 1)
			for _, u := range results {
				So(u.ConfidencePercent, ShouldBeBetweenOrEqual, 0, 100)
			}
			mu.Unlock()
		}
	})
}

func TestCadence(t *testing.T) {
	Convey("Given the default profiles", t, func() {
		p := app.DefaultProfiles()

		Convey("Then performance ticks strictly faster than accuracy", func() {
			So(p[model.ModePerformance].AnalysisInterval, ShouldBeLessThan, p[model.ModeAccuracy].AnalysisInterval)
			So(p[model.ModePerformance].AnalysisInterval, ShouldEqual, time.Second)
			So(p[model.ModeAccuracy].AnalysisInterval, ShouldEqual, 2*time.Second)
		})

		Convey("Then accuracy asks for more detail", func() {
			perf := p[model.ModePerformance].SourceConfig(30)
			acc := p[model.ModeAccuracy].SourceConfig(30)
			So(acc.RefineLandmarks, ShouldBeTrue)
			So(perf.RefineLandmarks, ShouldBeFalse)
			So(acc.MinDetectionConfidence, ShouldBeGreaterThan, perf.MinDetectionConfidence)
			So(acc.MinTrackingConfidence, ShouldBeGreaterThan, perf.MinTrackingConfidence)
			So(acc.Width*acc.Height, ShouldBeGreaterThan, perf.Width*perf.Height)
		})
	})
}

func TestResize(t *testing.T) {
	Convey("Given a running session on a resizable canvas", t, func() {
		fx := newFixture(identityFrame())
		fx.selectBoth(model.ModePerformance, model.FeatureEmotions)
		So(fx.ctrl.Start(context.Background()), ShouldBeNil)
		defer fx.ctrl.Stop(context.Background())

		Convey("When resized", func() {
			So(fx.ctrl.Resize(1280, 960), ShouldBeNil)

			Convey("Then the last frame is redrawn at the new size", func() {
				w, h := fx.rec.Size()
				So(w, ShouldEqual, 1280)
				So(h, ShouldEqual, 960)
				So(fx.rec.Clears(), ShouldEqual, 2)
				So(fx.rec.Ops()[0].Rect.Max().X, ShouldBeGreaterThan, 640)
			})
		})

		Convey("When given a bad size", func() {
			So(errors.Is(fx.ctrl.Resize(0, 10), app.ErrInvalidArgument), ShouldBeTrue)
		})
	})

	Convey("Given a canvas that cannot resize", t, func() {
		ctrl := app.New(fixedCanvas{canvas.NewRecorder(10, 10)}, nil, (&fakeFactory{}).build)
		So(errors.Is(ctrl.Resize(20, 20), app.ErrUnsupported), ShouldBeTrue)
	})
}

// fixedCanvas hides Resize.
type fixedCanvas struct{ render.Canvas }
