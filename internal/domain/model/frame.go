package model

import (
	"math"
	"time"
)

// Point is a normalized landmark position. Both coordinates are in [0,1]
// for points inside the captured image.
type Point struct {
	X float64
	Y float64
}

// Missing is the placeholder for a landmark the detector did not report.
var Missing = Point{X: math.NaN(), Y: math.NaN()}

// Present reports whether the point carries finite coordinates.
func (p Point) Present() bool {
	return finite(p.X) && finite(p.Y)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// LandmarkFrame is one detector output. Index i always names the same facial
// location across frames. A nil *LandmarkFrame means no face was found.
// Frames are immutable once published.
type LandmarkFrame struct {
	Points []Point
	Seq    uint64
}

// At returns point i and whether it is present.
func (f *LandmarkFrame) At(i int) (Point, bool) {
	if f == nil || i < 0 || i >= len(f.Points) {
		return Point{}, false
	}
	p := f.Points[i]
	if !p.Present() {
		return Point{}, false
	}
	return p, true
}

// Len returns the number of indexed slots, present or not.
func (f *LandmarkFrame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Points)
}

// Empty reports whether the frame has no present point at all.
func (f *LandmarkFrame) Empty() bool {
	if f == nil {
		return true
	}
	for _, p := range f.Points {
		if p.Present() {
			return false
		}
	}
	return true
}

// Without returns a copy of the frame with the given indices marked missing.
func (f *LandmarkFrame) Without(indices ...int) *LandmarkFrame {
	if f == nil {
		return nil
	}
	pts := make([]Point, len(f.Points))
	copy(pts, f.Points)
	for _, i := range indices {
		if i >= 0 && i < len(pts) {
			pts[i] = Missing
		}
	}
	return &LandmarkFrame{Points: pts, Seq: f.Seq}
}

// AnalysisResult is one mock analysis readout. Seq is the per-session tick
// counter; results never outlive the next tick.
type AnalysisResult struct {
	Label             string
	ConfidencePercent int
	Seq               uint64
	At                time.Time
}
