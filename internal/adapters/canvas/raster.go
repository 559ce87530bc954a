package canvas

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/okian/visionauth/internal/domain/geometry"
	"github.com/okian/visionauth/internal/domain/render"
)

const (
	circleSteps   = 24
	captionMargin = 8
	captionLine   = 16
)

// Raster is an anti-aliased RGBA canvas. Draw calls land on a back buffer;
// Present publishes it so readers never see a half-drawn pass.
type Raster struct {
	mu    sync.Mutex
	back  *image.RGBA
	front *image.RGBA
	z     *vector.Rasterizer
	style render.Style
	bg    color.Color
}

// RasterOption configures a Raster.
type RasterOption func(*Raster)

// WithBackground fills cleared frames with c instead of transparency.
func WithBackground(c color.Color) RasterOption {
	return func(r *Raster) {
		r.bg = c
	}
}

// NewRaster creates a w x h raster canvas.
func NewRaster(w, h int, opts ...RasterOption) *Raster {
	r := &Raster{bg: color.Transparent}
	for _, opt := range opts {
		opt(r)
	}
	r.alloc(w, h)
	return r
}

func (r *Raster) alloc(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	rect := image.Rect(0, 0, w, h)
	r.back = image.NewRGBA(rect)
	r.front = image.NewRGBA(rect)
	r.z = vector.NewRasterizer(w, h)
	draw.Draw(r.back, rect, image.NewUniform(r.bg), image.Point{}, draw.Src)
	draw.Draw(r.front, rect, image.NewUniform(r.bg), image.Point{}, draw.Src)
}

// Size implements render.Canvas.
func (r *Raster) Size() (float64, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.back.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

// Resize reallocates both buffers. Content is dropped.
func (r *Raster) Resize(w, h int) {
	r.mu.Lock()
	r.alloc(w, h)
	r.mu.Unlock()
}

// Clear implements render.Canvas.
func (r *Raster) Clear() {
	r.mu.Lock()
	draw.Draw(r.back, r.back.Bounds(), image.NewUniform(r.bg), image.Point{}, draw.Src)
	r.mu.Unlock()
}

// SetStyle implements render.Canvas.
func (r *Raster) SetStyle(s render.Style) {
	r.mu.Lock()
	r.style = s
	r.mu.Unlock()
}

// StrokeRect implements render.Canvas.
func (r *Raster) StrokeRect(rect geometry.Rect) {
	m := rect.Max()
	r.StrokePolyline([]geometry.Vec{
		{X: rect.X, Y: rect.Y}, {X: m.X, Y: rect.Y}, m, {X: rect.X, Y: m.Y},
	}, true)
}

// StrokePolyline implements render.Canvas.
func (r *Raster) StrokePolyline(pts []geometry.Vec, closed bool) {
	if len(pts) < 2 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	half := math.Max(r.style.LineWidth, 1) / 2
	b := r.back.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
	for i := 0; i+1 < len(pts); i++ {
		r.quad(pts[i], pts[i+1], half)
	}
	if closed && len(pts) > 2 {
		r.quad(pts[len(pts)-1], pts[0], half)
	}
	r.flush()
}

// FillCircle implements render.Canvas.
func (r *Raster) FillCircle(c geometry.Vec, radius float64) {
	if radius <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.back.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
	for i := 0; i <= circleSteps; i++ {
		a := 2 * math.Pi * float64(i) / circleSteps
		x, y := float32(c.X+radius*math.Cos(a)), float32(c.Y+radius*math.Sin(a))
		if i == 0 {
			r.z.MoveTo(x, y)
			continue
		}
		r.z.LineTo(x, y)
	}
	r.z.ClosePath()
	r.flush()
}

// StrokeCircle implements render.Canvas.
func (r *Raster) StrokeCircle(c geometry.Vec, radius float64) {
	if radius <= 0 {
		return
	}
	pts := make([]geometry.Vec, circleSteps)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSteps
		pts[i] = geometry.Vec{X: c.X + radius*math.Cos(a), Y: c.Y + radius*math.Sin(a)}
	}
	r.StrokePolyline(pts, true)
}

// quad adds a line of half-width half from a to b to the rasterizer path.
func (r *Raster) quad(a, b geometry.Vec, half float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*half, dx/l*half
	r.z.MoveTo(float32(a.X+nx), float32(a.Y+ny))
	r.z.LineTo(float32(b.X+nx), float32(b.Y+ny))
	r.z.LineTo(float32(b.X-nx), float32(b.Y-ny))
	r.z.LineTo(float32(a.X-nx), float32(a.Y-ny))
	r.z.ClosePath()
}

func (r *Raster) flush() {
	r.z.DrawOp = draw.Over
	r.z.Draw(r.back, r.back.Bounds(), image.NewUniform(paint(r.style)), image.Point{})
}

// Present implements render.Presenter.
func (r *Raster) Present() {
	r.mu.Lock()
	copy(r.front.Pix, r.back.Pix)
	r.mu.Unlock()
}

// Snapshot returns a copy of the last presented frame.
func (r *Raster) Snapshot() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := image.NewRGBA(r.front.Bounds())
	copy(out.Pix, r.front.Pix)
	return out
}

// WritePNG encodes the last presented frame, with caption lines printed in
// the top-left corner.
func (r *Raster) WritePNG(w io.Writer, caption ...string) error {
	img := r.Snapshot()
	if len(caption) > 0 {
		d := &font.Drawer{
			Dst:  img,
			Src:  image.White,
			Face: basicfont.Face7x13,
		}
		for i, line := range caption {
			d.Dot = fixed.P(captionMargin, captionMargin+captionLine*(i+1))
			d.DrawString(line)
		}
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
