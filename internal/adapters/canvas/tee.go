package canvas

import (
	"github.com/okian/visionauth/internal/domain/geometry"
	"github.com/okian/visionauth/internal/domain/render"
)

// Resizer is implemented by canvases whose viewport can change.
type Resizer interface {
	Resize(w, h int)
}

// Tee fans every draw call out to several canvases. Size is taken from the
// first one; the others are expected to share its viewport.
type Tee struct {
	targets []render.Canvas
}

// NewTee creates a tee over targets. At least one target is required.
func NewTee(first render.Canvas, rest ...render.Canvas) *Tee {
	return &Tee{targets: append([]render.Canvas{first}, rest...)}
}

// Size implements render.Canvas.
func (t *Tee) Size() (float64, float64) { return t.targets[0].Size() }

// Clear implements render.Canvas.
func (t *Tee) Clear() {
	for _, c := range t.targets {
		c.Clear()
	}
}

// SetStyle implements render.Canvas.
func (t *Tee) SetStyle(s render.Style) {
	for _, c := range t.targets {
		c.SetStyle(s)
	}
}

// StrokeRect implements render.Canvas.
func (t *Tee) StrokeRect(r geometry.Rect) {
	for _, c := range t.targets {
		c.StrokeRect(r)
	}
}

// StrokePolyline implements render.Canvas.
func (t *Tee) StrokePolyline(pts []geometry.Vec, closed bool) {
	for _, c := range t.targets {
		c.StrokePolyline(pts, closed)
	}
}

// FillCircle implements render.Canvas.
func (t *Tee) FillCircle(v geometry.Vec, r float64) {
	for _, c := range t.targets {
		c.FillCircle(v, r)
	}
}

// StrokeCircle implements render.Canvas.
func (t *Tee) StrokeCircle(v geometry.Vec, r float64) {
	for _, c := range t.targets {
		c.StrokeCircle(v, r)
	}
}

// Present forwards to every target that buffers.
func (t *Tee) Present() {
	for _, c := range t.targets {
		if p, ok := c.(render.Presenter); ok {
			p.Present()
		}
	}
}

// Resize forwards to every target that can resize.
func (t *Tee) Resize(w, h int) {
	for _, c := range t.targets {
		if r, ok := c.(Resizer); ok {
			r.Resize(w, h)
		}
	}
}
