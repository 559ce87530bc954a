// Package geometry maps normalized landmarks to canvas pixels.
package geometry

import (
	"math"

	"github.com/okian/visionauth/internal/domain/model"
)

// Vec is a point in canvas pixel space.
type Vec struct {
	X float64
	Y float64
}

// Rect is an axis-aligned box in pixel space.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Empty reports a degenerate box. Callers draw nothing for it.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether v lies inside r, edges included.
func (r Rect) Contains(v Vec) bool {
	return v.X >= r.X && v.X <= r.X+r.Width && v.Y >= r.Y && v.Y <= r.Y+r.Height
}

// Max returns the bottom-right corner.
func (r Rect) Max() Vec {
	return Vec{X: r.X + r.Width, Y: r.Y + r.Height}
}

// Segment is a straight line between two pixels.
type Segment struct {
	A Vec
	B Vec
}

// Grid returns the interior lines splitting r into cols x rows equal cells.
func (r Rect) Grid(cols, rows int) []Segment {
	if r.Empty() || cols < 1 || rows < 1 {
		return nil
	}
	out := make([]Segment, 0, cols+rows-2)
	for c := 1; c < cols; c++ {
		x := r.X + r.Width*float64(c)/float64(cols)
		out = append(out, Segment{A: Vec{X: x, Y: r.Y}, B: Vec{X: x, Y: r.Y + r.Height}})
	}
	for rr := 1; rr < rows; rr++ {
		y := r.Y + r.Height*float64(rr)/float64(rows)
		out = append(out, Segment{A: Vec{X: r.X, Y: y}, B: Vec{X: r.X + r.Width, Y: y}})
	}
	return out
}

// Project maps a normalized point onto a w x h canvas.
func Project(p model.Point, w, h float64) Vec {
	return Vec{X: p.X * w, Y: p.Y * h}
}

// ComputeBounds returns the box enclosing every present projected point of
// indices, grown by padding on all sides. It returns the zero Rect when none
// of the indices is present in frame.
func ComputeBounds(frame *model.LandmarkFrame, indices []int, padding, w, h float64) Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	found := false
	for _, i := range indices {
		p, ok := frame.At(i)
		if !ok {
			continue
		}
		v := Project(p, w, h)
		minX = math.Min(minX, v.X)
		minY = math.Min(minY, v.Y)
		maxX = math.Max(maxX, v.X)
		maxY = math.Max(maxY, v.Y)
		found = true
	}
	if !found {
		return Rect{}
	}
	if padding < 0 {
		padding = 0
	}
	return Rect{
		X:      minX - padding,
		Y:      minY - padding,
		Width:  maxX - minX + 2*padding,
		Height: maxY - minY + 2*padding,
	}
}
