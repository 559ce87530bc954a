package landmark

import (
	"math"

	"github.com/okian/visionauth/internal/domain/model"
	"github.com/okian/visionauth/internal/domain/topology"
)

// Face layout in face units: the oval spans [-1,1] on both axes.
const (
	faceHalfWidth  = 0.18
	faceHalfHeight = 0.26
	goldenAngle    = 2.399963229728653
)

type ellipse struct {
	cx, cy, rx, ry float64
}

// ring places indices around e starting at angle a0, walking toward
// decreasing angles so lower lids and lips come first.
func (e ellipse) ring(pts []model.Point, indices []int, a0 float64, dir float64) {
	n := float64(len(indices))
	for k, idx := range indices {
		a := a0 + dir*2*math.Pi*float64(k)/n
		pts[idx] = model.Point{X: e.cx + e.rx*math.Cos(a), Y: e.cy + e.ry*math.Sin(a)}
	}
}

func line(pts []model.Point, indices []int, x0, y0, x1, y1 float64) {
	n := float64(len(indices) - 1)
	if n <= 0 {
		n = 1
	}
	for k, idx := range indices {
		t := float64(k) / n
		pts[idx] = model.Point{X: x0 + (x1-x0)*t, Y: y0 + (y1-y0)*t}
	}
}

func arc(pts []model.Point, indices []int, x0, x1, y, lift float64) {
	n := float64(len(indices) - 1)
	for k, idx := range indices {
		t := float64(k) / n
		pts[idx] = model.Point{X: x0 + (x1-x0)*t, Y: y - lift*math.Sin(math.Pi*t)}
	}
}

var baseFace = buildFace()

// buildFace lays out all model points in face units. Interior points fill
// the oval on a sunflower spiral; sectioned points are placed on their
// features.
func buildFace() []model.Point {
	pts := make([]model.Point, topology.ModelPoints)
	for i := range pts {
		r := 0.85 * math.Sqrt((float64(i)+0.5)/float64(len(pts)))
		a := float64(i) * goldenAngle
		pts[i] = model.Point{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}

	lookup := func(name string) []int {
		s, _ := topology.Lookup(name)
		return s.Indices
	}

	ellipse{0, 0, 1, 1}.ring(pts, lookup(topology.Contour), -math.Pi/2, 1)
	ellipse{-0.4, -0.15, 0.2, 0.08}.ring(pts, lookup(topology.RightEye), math.Pi, -1)
	ellipse{0.4, -0.15, 0.2, 0.08}.ring(pts, lookup(topology.LeftEye), math.Pi, -1)
	arc(pts, lookup(topology.RightEyebrow), -0.65, -0.15, -0.35, 0.07)
	arc(pts, lookup(topology.LeftEyebrow), 0.65, 0.15, -0.35, 0.07)
	ellipse{0, 0.5, 0.36, 0.14}.ring(pts, lookup(topology.LipsOuter), math.Pi, -1)
	ellipse{0, 0.5, 0.26, 0.05}.ring(pts, lookup(topology.LipsInner), math.Pi, -1)
	line(pts, lookup(topology.NoseBridge), 0, -0.15, 0, 0.25)
	return pts
}

// SyntheticFace returns a full frame for tick seq. The face drifts and
// nods slowly so consecutive frames differ.
func SyntheticFace(seq uint64) *model.LandmarkFrame {
	t := float64(seq)
	cx := 0.5 + 0.03*math.Sin(t/23)
	cy := 0.5 + 0.02*math.Sin(t/31)
	scale := 1 + 0.04*math.Sin(t/17)
	tilt := 0.05 * math.Sin(t/41)
	sin, cos := math.Sincos(tilt)

	pts := make([]model.Point, len(baseFace))
	for i, p := range baseFace {
		x := p.X*cos - p.Y*sin
		y := p.X*sin + p.Y*cos
		pts[i] = model.Point{
			X: cx + x*faceHalfWidth*scale,
			Y: cy + y*faceHalfHeight*scale,
		}
	}
	return &model.LandmarkFrame{Points: pts, Seq: seq}
}
