package canvas

import (
	"github.com/okian/visionauth/internal/domain/render"
)

// OverlayFrame is one presented pass as vector ops, sized for the viewport.
type OverlayFrame struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Ops    []Op    `json:"ops"`
}

// OverlaySink receives presented overlay frames, e.g. a websocket hub.
type OverlaySink interface {
	PublishOverlay(frame OverlayFrame)
}

// Overlay records draw calls and hands each finished pass to a sink so a
// remote viewer can replay them over its own video element.
type Overlay struct {
	*Recorder
	sink OverlaySink
}

// NewOverlay creates an overlay canvas of the given viewport size.
func NewOverlay(w, h float64, sink OverlaySink) *Overlay {
	return &Overlay{Recorder: NewRecorder(w, h), sink: sink}
}

// Present implements render.Presenter.
func (o *Overlay) Present() {
	if o.sink == nil {
		return
	}
	w, h := o.Size()
	o.sink.PublishOverlay(OverlayFrame{Width: w, Height: h, Ops: o.Ops()})
}

var _ render.Presenter = (*Overlay)(nil)
