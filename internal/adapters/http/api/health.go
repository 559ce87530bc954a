package api

import (
	"net/http"
	"time"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	ctrl    Controller
	started time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(ctrl Controller) *HealthHandler {
	return &HealthHandler{ctrl: ctrl, started: time.Now()}
}

type healthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session"`
	Uptime  string `json:"uptime"`
}

// HandleHealth handles GET /healthz. Prometheus metrics live at /metrics.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Session: h.ctrl.Snapshot().State.String(),
		Uptime:  time.Since(h.started).Truncate(time.Second).String(),
	})
}
