//go:build gocv

package canvas

import (
	"image"
	"image/color"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/okian/visionauth/internal/domain/geometry"
	"github.com/okian/visionauth/internal/domain/render"
)

// Mat draws onto an OpenCV matrix and optionally shows it in a desktop
// window on Present. Alpha is applied by blending a layer onto the frame.
type Mat struct {
	mu     sync.Mutex
	frame  gocv.Mat
	layer  gocv.Mat
	style  render.Style
	window *gocv.Window
}

// NewMat creates a w x h BGR canvas. A non-empty title opens a preview window.
func NewMat(w, h int, title string) *Mat {
	m := &Mat{
		frame: gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3),
		layer: gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3),
	}
	if title != "" {
		m.window = gocv.NewWindow(title)
		m.window.ResizeWindow(w, h)
	}
	return m
}

// Size implements render.Canvas.
func (m *Mat) Size() (float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.frame.Cols()), float64(m.frame.Rows())
}

// Clear implements render.Canvas.
func (m *Mat) Clear() {
	m.mu.Lock()
	m.frame.SetTo(gocv.NewScalar(0, 0, 0, 0))
	m.mu.Unlock()
}

// SetStyle implements render.Canvas.
func (m *Mat) SetStyle(s render.Style) {
	m.mu.Lock()
	m.style = s
	m.mu.Unlock()
}

func (m *Mat) bgr() color.RGBA {
	c := m.style.Color
	return color.RGBA{R: c.B, G: c.G, B: c.R, A: 255}
}

func (m *Mat) thickness() int {
	return int(math.Max(1, math.Round(m.style.LineWidth)))
}

// blend draws through the scratch layer so Alpha takes effect.
func (m *Mat) blend(paint func(dst *gocv.Mat)) {
	a := m.style.Alpha
	if a >= 1 {
		paint(&m.frame)
		return
	}
	m.frame.CopyTo(&m.layer)
	paint(&m.layer)
	gocv.AddWeighted(m.layer, a, m.frame, 1-a, 0, &m.frame)
}

func pt(v geometry.Vec) image.Point {
	return image.Pt(int(math.Round(v.X)), int(math.Round(v.Y)))
}

// StrokeRect implements render.Canvas.
func (m *Mat) StrokeRect(r geometry.Rect) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blend(func(dst *gocv.Mat) {
		gocv.Rectangle(dst, image.Rectangle{Min: pt(geometry.Vec{X: r.X, Y: r.Y}), Max: pt(r.Max())}, m.bgr(), m.thickness())
	})
}

// StrokePolyline implements render.Canvas.
func (m *Mat) StrokePolyline(pts []geometry.Vec, closed bool) {
	if len(pts) < 2 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blend(func(dst *gocv.Mat) {
		for i := 0; i+1 < len(pts); i++ {
			gocv.Line(dst, pt(pts[i]), pt(pts[i+1]), m.bgr(), m.thickness())
		}
		if closed && len(pts) > 2 {
			gocv.Line(dst, pt(pts[len(pts)-1]), pt(pts[0]), m.bgr(), m.thickness())
		}
	})
}

// FillCircle implements render.Canvas.
func (m *Mat) FillCircle(c geometry.Vec, r float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blend(func(dst *gocv.Mat) {
		gocv.Circle(dst, pt(c), int(math.Max(1, math.Round(r))), m.bgr(), -1)
	})
}

// StrokeCircle implements render.Canvas.
func (m *Mat) StrokeCircle(c geometry.Vec, r float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blend(func(dst *gocv.Mat) {
		gocv.Circle(dst, pt(c), int(math.Max(1, math.Round(r))), m.bgr(), m.thickness())
	})
}

// Present implements render.Presenter by refreshing the preview window.
func (m *Mat) Present() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.window == nil {
		return
	}
	m.window.IMShow(m.frame)
	m.window.WaitKey(1)
}

// Close releases native memory and the window.
func (m *Mat) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.window != nil {
		_ = m.window.Close()
		m.window = nil
	}
	_ = m.layer.Close()
	return m.frame.Close()
}

// NewPreview opens a desktop preview window canvas.
func NewPreview(w, h int, title string) (PreviewCanvas, error) {
	return NewMat(w, h, title), nil
}
