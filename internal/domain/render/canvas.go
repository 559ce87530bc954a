// Package render draws landmark wireframes onto a pixel-space canvas.
package render

import (
	"image/color"

	"github.com/okian/visionauth/internal/domain/geometry"
)

// Canvas is a pixel-space drawing surface. The renderer owns it exclusively
// for the duration of a Render call.
type Canvas interface {
	Size() (w, h float64)
	Clear()
	SetStyle(Style)
	StrokeRect(r geometry.Rect)
	StrokePolyline(pts []geometry.Vec, closed bool)
	FillCircle(c geometry.Vec, r float64)
	StrokeCircle(c geometry.Vec, r float64)
}

// Presenter is implemented by surfaces that buffer draw calls and need a
// flush once a full pass is on them.
type Presenter interface {
	Present()
}

// Style is the pen for subsequent draw calls.
type Style struct {
	Color     color.RGBA
	Alpha     float64
	LineWidth float64
	// Layer names what is being drawn: a section name, "box", "grid" or "keypoints".
	Layer string
}

// Layers that are not topology sections.
const (
	LayerBox       = "box"
	LayerGrid      = "grid"
	LayerKeyPoints = "keypoints"
)

// Palette holds the overlay colors.
type Palette struct {
	Primary color.RGBA
	Accent  color.RGBA
	Grid    color.RGBA
}

// DefaultPalette is the brand violet with a purple accent.
func DefaultPalette() Palette {
	return Palette{
		Primary: color.RGBA{R: 0x66, G: 0x7e, B: 0xea, A: 0xff},
		Accent:  color.RGBA{R: 0x76, G: 0x4b, B: 0xa2, A: 0xff},
		Grid:    color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	}
}
