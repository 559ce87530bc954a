package stream_test

import (
	"image/color"

	"github.com/okian/visionauth/internal/domain/geometry"
	"github.com/okian/visionauth/internal/domain/render"
)

func renderStyle() render.Style {
	return render.Style{Color: color.RGBA{R: 0x66, G: 0x7e, B: 0xea, A: 0xff}, Alpha: 1, LineWidth: 2, Layer: "left_eye"}
}

func polyline() []geometry.Vec {
	return []geometry.Vec{{X: 10, Y: 10}, {X: 40, Y: 10}, {X: 25, Y: 30}}
}
