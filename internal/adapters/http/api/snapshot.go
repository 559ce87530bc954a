package api

import (
	"bytes"
	"fmt"
	"net/http"
)

// SnapshotHandler serves the raster canvas as PNG.
type SnapshotHandler struct {
	ctrl Controller
	png  PNGWriter
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(ctrl Controller, png PNGWriter) *SnapshotHandler {
	return &SnapshotHandler{ctrl: ctrl, png: png}
}

// HandleSnapshot handles GET /api/snapshot.png. The readout is printed in
// the corner.
func (h *SnapshotHandler) HandleSnapshot(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := h.png.WritePNG(&buf, caption(h.ctrl)...); err != nil {
		writeFailure(w, WrapKind("snapshot", ErrRender, err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func caption(ctrl Controller) []string {
	s := ctrl.Snapshot()
	lines := []string{s.State.String()}
	if name := s.Mode.DisplayName(); name != "" {
		lines = append(lines, name)
	}
	if s.Result != nil {
		lines = append(lines, fmt.Sprintf("%s: %s (%d%%)", s.Feature.DisplayName(), s.Result.Label, s.Result.ConfidencePercent))
	}
	if !s.Detecting && s.State.Active() {
		lines = append(lines, "no face")
	}
	return lines
}
