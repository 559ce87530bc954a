package model_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/visionauth/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseMode(t *testing.T) {
	Convey("Given mode names from the UI", t, func() {
		Convey("When parsing canonical names and aliases", func() {
			perf, err1 := model.ParseMode("Performance")
			acc, err2 := model.ParseMode("precision")

			Convey("Then they resolve to the two modes", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(perf, ShouldEqual, model.ModePerformance)
				So(acc, ShouldEqual, model.ModeAccuracy)
				So(acc.DisplayName(), ShouldEqual, "Precision Mode")
			})
		})

		Convey("When parsing garbage", func() {
			_, err := model.ParseMode("turbo")

			Convey("Then ErrUnknownValue is returned", func() {
				So(errors.Is(err, model.ErrUnknownValue), ShouldBeTrue)
			})
		})
	})
}

func TestParseFeature(t *testing.T) {
	Convey("Given feature names", t, func() {
		emo, err := model.ParseFeature("emotion_detection")
		So(err, ShouldBeNil)
		So(emo, ShouldEqual, model.FeatureEmotions)
		So(emo.DisplayName(), ShouldEqual, "Emotion Recognition")

		age, err := model.ParseFeature(" AGE ")
		So(err, ShouldBeNil)
		So(age, ShouldEqual, model.FeatureAge)
		So(age.Valid(), ShouldBeTrue)

		_, err = model.ParseFeature("gender")
		So(errors.Is(err, model.ErrUnknownValue), ShouldBeTrue)
		So(model.Feature("gender").Valid(), ShouldBeFalse)
	})
}

func TestLandmarkFrame(t *testing.T) {
	Convey("Given a three point frame", t, func() {
		f := &model.LandmarkFrame{Points: []model.Point{{X: 0.1, Y: 0.2}, model.Missing, {X: 1, Y: 1}}, Seq: 7}

		Convey("Then At reports presence per index", func() {
			p, ok := f.At(0)
			So(ok, ShouldBeTrue)
			So(p.X, ShouldEqual, 0.1)

			_, ok = f.At(1)
			So(ok, ShouldBeFalse)
			_, ok = f.At(3)
			So(ok, ShouldBeFalse)
			_, ok = f.At(-1)
			So(ok, ShouldBeFalse)
			So(f.Len(), ShouldEqual, 3)
			So(f.Empty(), ShouldBeFalse)
		})

		Convey("When dropping indices", func() {
			g := f.Without(0, 2, 99)

			Convey("Then the copy is empty and the original untouched", func() {
				So(g.Empty(), ShouldBeTrue)
				So(g.Seq, ShouldEqual, 7)
				_, ok := f.At(0)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("Then a nil frame is empty", func() {
			var none *model.LandmarkFrame
			So(none.Empty(), ShouldBeTrue)
			So(none.Len(), ShouldEqual, 0)
			So(none.Without(1), ShouldBeNil)
			_, ok := none.At(0)
			So(ok, ShouldBeFalse)
		})

		Convey("Then a half-NaN point is missing", func() {
			So(model.Point{X: 0.5, Y: math.NaN()}.Present(), ShouldBeFalse)
		})
	})
}

func TestSessionState(t *testing.T) {
	Convey("Given every session state", t, func() {
		So(model.StateIdle.String(), ShouldEqual, "idle")
		So(model.StateModeSelected.String(), ShouldEqual, "mode_selected")
		So(model.StateRunning.String(), ShouldEqual, "running")
		So(model.SessionState(42).String(), ShouldEqual, "unknown")
		So(model.StateIdle.Active(), ShouldBeFalse)
		So(model.StateInitializing.Active(), ShouldBeTrue)
	})
}

func TestPointPresence(t *testing.T) {
	Convey("Given points with non-finite coordinates", t, func() {
		So(model.Point{X: 0.4, Y: 0.6}.Present(), ShouldBeTrue)
		So(model.Missing.Present(), ShouldBeFalse)
		So(model.Point{X: math.Inf(1), Y: 0.2}.Present(), ShouldBeFalse)
		So(model.Point{X: 0.2, Y: math.Inf(-1)}.Present(), ShouldBeFalse)

		Convey("Then a frame treats them as missing", func() {
			f := &model.LandmarkFrame{Points: []model.Point{{X: math.Inf(1), Y: 0.2}, {X: 0.3, Y: 0.3}}}
			_, ok := f.At(0)
			So(ok, ShouldBeFalse)
			_, ok = f.At(1)
			So(ok, ShouldBeTrue)
			So(f.Without(1).Empty(), ShouldBeTrue)
		})
	})
}
