package canvas

import (
	"fmt"
	"image/color"

	"github.com/okian/visionauth/internal/domain/render"
)

func hexColor(s render.Style) string {
	return fmt.Sprintf("#%02x%02x%02x", s.Color.R, s.Color.G, s.Color.B)
}

// paint returns the style color with Alpha folded into the alpha channel.
func paint(s render.Style) color.NRGBA {
	a := s.Alpha
	switch {
	case a <= 0:
		a = 0
	case a > 1:
		a = 1
	}
	return color.NRGBA{R: s.Color.R, G: s.Color.G, B: s.Color.B, A: uint8(a*float64(s.Color.A) + 0.5)}
}
