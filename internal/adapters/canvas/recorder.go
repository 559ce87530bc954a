// Package canvas provides drawing surfaces for the wireframe renderer.
package canvas

import (
	"sync"

	"github.com/okian/visionauth/internal/domain/geometry"
	"github.com/okian/visionauth/internal/domain/render"
)

// OpKind names a draw call.
type OpKind string

// Draw call kinds.
const (
	OpRect         OpKind = "rect"
	OpPolyline     OpKind = "polyline"
	OpFillCircle   OpKind = "fill_circle"
	OpStrokeCircle OpKind = "stroke_circle"
)

// Op is one recorded draw call with the style active at the time.
type Op struct {
	Kind   OpKind         `json:"kind"`
	Layer  string         `json:"layer"`
	Color  string         `json:"color"`
	Alpha  float64        `json:"alpha"`
	Width  float64        `json:"width"`
	Rect   *geometry.Rect `json:"rect,omitempty"`
	Points []geometry.Vec `json:"points,omitempty"`
	Closed bool           `json:"closed,omitempty"`
	Radius float64        `json:"radius,omitempty"`

	style render.Style
}

// Style returns the pen the op was drawn with.
func (o Op) Style() render.Style { return o.style }

// Segments is the number of line segments a polyline op strokes.
func (o Op) Segments() int {
	if o.Kind != OpPolyline || len(o.Points) < 2 {
		return 0
	}
	if o.Closed {
		return len(o.Points)
	}
	return len(o.Points) - 1
}

// Recorder is a canvas that keeps the draw calls of the current pass.
// Clear starts a new pass.
type Recorder struct {
	mu     sync.Mutex
	w, h   float64
	style  render.Style
	ops    []Op
	clears int
}

// NewRecorder creates a recorder reporting the given size.
func NewRecorder(w, h float64) *Recorder {
	return &Recorder{w: w, h: h}
}

// Size implements render.Canvas.
func (r *Recorder) Size() (float64, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w, r.h
}

// Resize changes the reported size.
func (r *Recorder) Resize(w, h int) {
	r.mu.Lock()
	r.w, r.h = float64(w), float64(h)
	r.mu.Unlock()
}

// Clear implements render.Canvas.
func (r *Recorder) Clear() {
	r.mu.Lock()
	r.ops = nil
	r.clears++
	r.mu.Unlock()
}

// SetStyle implements render.Canvas.
func (r *Recorder) SetStyle(s render.Style) {
	r.mu.Lock()
	r.style = s
	r.mu.Unlock()
}

// StrokeRect implements render.Canvas.
func (r *Recorder) StrokeRect(rect geometry.Rect) {
	r.add(Op{Kind: OpRect, Rect: &rect})
}

// StrokePolyline implements render.Canvas.
func (r *Recorder) StrokePolyline(pts []geometry.Vec, closed bool) {
	r.add(Op{Kind: OpPolyline, Points: append([]geometry.Vec(nil), pts...), Closed: closed})
}

// FillCircle implements render.Canvas.
func (r *Recorder) FillCircle(c geometry.Vec, radius float64) {
	r.add(Op{Kind: OpFillCircle, Points: []geometry.Vec{c}, Radius: radius})
}

// StrokeCircle implements render.Canvas.
func (r *Recorder) StrokeCircle(c geometry.Vec, radius float64) {
	r.add(Op{Kind: OpStrokeCircle, Points: []geometry.Vec{c}, Radius: radius})
}

func (r *Recorder) add(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op.style = r.style
	op.Layer = r.style.Layer
	op.Color = hexColor(r.style)
	op.Alpha = r.style.Alpha
	op.Width = r.style.LineWidth
	r.ops = append(r.ops, op)
}

// Ops returns a copy of the current pass.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// Clears returns how many times the canvas was cleared.
func (r *Recorder) Clears() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}

// Segments counts polyline segments drawn on layer in the current pass.
func (r *Recorder) Segments(layer string) int {
	n := 0
	for _, op := range r.Ops() {
		if op.Layer == layer {
			n += op.Segments()
		}
	}
	return n
}

// Count returns how many ops of kind were drawn in the current pass.
func (r *Recorder) Count(kind OpKind) int {
	n := 0
	for _, op := range r.Ops() {
		if op.Kind == kind {
			n++
		}
	}
	return n
}
