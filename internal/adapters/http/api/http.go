// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/visionauth/internal/app"
	"github.com/okian/visionauth/pkg/metrics"
)

// Controller is the part of the session controller the handlers drive.
type Controller interface {
	OnUserAction(ctx context.Context, a app.Action) error
	Snapshot() app.Snapshot
	Resize(w, h int) error
}

// PNGWriter renders the current canvas as PNG.
type PNGWriter interface {
	WritePNG(w io.Writer, caption ...string) error
}

// Server wires HTTP routes for the session API.
type Server struct {
	healthHandler    *HealthHandler
	sessionHandler   *SessionHandler
	snapshotHandler  *SnapshotHandler
	dashboardHandler *dashboardHandler
	stream           http.Handler
}

// NewServer creates a new API server with all handlers. png and stream may
// be nil, in which case their routes are not registered.
func NewServer(ctrl Controller, png PNGWriter, stream http.Handler) *Server {
	s := &Server{
		healthHandler:    NewHealthHandler(ctrl),
		sessionHandler:   NewSessionHandler(ctrl),
		dashboardHandler: newDashboardHandler(),
		stream:           stream,
	}
	if png != nil {
		s.snapshotHandler = NewSnapshotHandler(ctrl, png)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /dashboard", s.dashboardHandler.HandleDashboard)

	mux.HandleFunc("GET /api/session", MetricsMiddleware(s.sessionHandler.HandleGet, "session"))
	mux.HandleFunc("POST /api/session/mode", MetricsMiddleware(s.sessionHandler.HandleMode, "session_mode"))
	mux.HandleFunc("POST /api/session/feature", MetricsMiddleware(s.sessionHandler.HandleFeature, "session_feature"))
	mux.HandleFunc("POST /api/session/start", MetricsMiddleware(s.sessionHandler.HandleStart, "session_start"))
	mux.HandleFunc("POST /api/session/stop", MetricsMiddleware(s.sessionHandler.HandleStop, "session_stop"))
	mux.HandleFunc("POST /api/session/reset", MetricsMiddleware(s.sessionHandler.HandleReset, "session_reset"))
	mux.HandleFunc("POST /api/session/action", MetricsMiddleware(s.sessionHandler.HandleAction, "session_action"))
	mux.HandleFunc("POST /api/canvas/size", MetricsMiddleware(s.sessionHandler.HandleResize, "canvas_size"))

	if s.snapshotHandler != nil {
		mux.HandleFunc("GET /api/snapshot.png", MetricsMiddleware(s.snapshotHandler.HandleSnapshot, "snapshot"))
	}
	if s.stream != nil {
		mux.Handle("GET /stream", s.stream)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure picks the status from the error kind.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}
