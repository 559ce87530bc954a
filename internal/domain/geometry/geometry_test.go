package geometry_test

import (
	"math/rand"
	"testing"

	"github.com/okian/visionauth/internal/domain/geometry"
	"github.com/okian/visionauth/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestProject(t *testing.T) {
	Convey("Given a normalized point", t, func() {
		v := geometry.Project(model.Point{X: 0.25, Y: 0.5}, 640, 480)

		Convey("Then it scales by canvas size", func() {
			So(v.X, ShouldEqual, 160)
			So(v.Y, ShouldEqual, 240)
		})
	})
}

func TestComputeBounds(t *testing.T) {
	Convey("Given a frame", t, func() {
		frame := &model.LandmarkFrame{Points: []model.Point{
			{X: 0.1, Y: 0.2}, {X: 0.5, Y: 0.9}, model.Missing, {X: 0.3, Y: 0.4},
		}}

		Convey("When the index subset is empty", func() {
			r := geometry.ComputeBounds(frame, nil, 20, 100, 100)

			Convey("Then the box is zero-area", func() {
				So(r, ShouldResemble, geometry.Rect{})
				So(r.Empty(), ShouldBeTrue)
			})
		})

		Convey("When only absent indices are referenced", func() {
			r := geometry.ComputeBounds(frame, []int{2, 17}, 20, 100, 100)

			Convey("Then the box is zero-area", func() {
				So(r.Empty(), ShouldBeTrue)
			})
		})

		Convey("When the frame is nil", func() {
			So(geometry.ComputeBounds(nil, []int{0, 1}, 20, 100, 100).Empty(), ShouldBeTrue)
		})

		Convey("When present indices are referenced", func() {
			r := geometry.ComputeBounds(frame, []int{0, 1, 2, 3}, 10, 100, 200)

			Convey("Then the box is padded min/max", func() {
				So(r.X, ShouldAlmostEqual, 0)
				So(r.Y, ShouldAlmostEqual, 30)
				So(r.Width, ShouldAlmostEqual, 60)
				So(r.Height, ShouldAlmostEqual, 160)
			})
		})
	})
}

func TestComputeBoundsContainment(t *testing.T) {
	Convey("Given random frames and random index subsets", t, func() {
		rng := rand.New(rand.NewSource(7))

		Convey("Then every projected present point lies inside the box", func() {
			for trial := 0; trial < 200; trial++ {
				pts := make([]model.Point, 50)
				for i := range pts {
					if rng.Intn(5) == 0 {
						pts[i] = model.Missing
						continue
					}
					pts[i] = model.Point{X: rng.Float64(), Y: rng.Float64()}
				}
				frame := &model.LandmarkFrame{Points: pts}
				var idx []int
				for i := 0; i < rng.Intn(20)+1; i++ {
					idx = append(idx, rng.Intn(60))
				}
				w, h := float64(rng.Intn(1000)+1), float64(rng.Intn(1000)+1)
				pad := float64(rng.Intn(30))

				r := geometry.ComputeBounds(frame, idx, pad, w, h)
				for _, i := range idx {
					p, ok := frame.At(i)
					if !ok {
						continue
					}
					So(r.Contains(geometry.Project(p, w, h)), ShouldBeTrue)
				}
			}
		})
	})
}

func TestGrid(t *testing.T) {
	Convey("Given a 300x200 box", t, func() {
		r := geometry.Rect{X: 0, Y: 0, Width: 300, Height: 200}
		lines := r.Grid(3, 2)

		Convey("Then a 3x2 grid has two vertical and one horizontal line", func() {
			So(len(lines), ShouldEqual, 3)
			So(lines[0].A.X, ShouldEqual, 100)
			So(lines[1].A.X, ShouldEqual, 200)
			So(lines[2].A.Y, ShouldEqual, 100)
			So(lines[2].B.X, ShouldEqual, 300)
		})

		Convey("Then a degenerate box has no grid", func() {
			So(geometry.Rect{}.Grid(3, 2), ShouldBeEmpty)
		})
	})
}
