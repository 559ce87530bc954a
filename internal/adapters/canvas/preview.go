package canvas

import (
	"errors"

	"github.com/okian/visionauth/internal/domain/render"
)

// ErrPreviewUnavailable is returned when the binary was built without OpenCV.
var ErrPreviewUnavailable = errors.New("desktop preview requires the gocv build tag")

// PreviewCanvas is a canvas backed by a native window.
type PreviewCanvas interface {
	render.Canvas
	render.Presenter
	Close() error
}
