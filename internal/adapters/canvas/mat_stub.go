//go:build !gocv

package canvas

// NewPreview reports ErrPreviewUnavailable in builds without OpenCV.
func NewPreview(_, _ int, _ string) (PreviewCanvas, error) {
	return nil, ErrPreviewUnavailable
}
