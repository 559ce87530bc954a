package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/visionauth/internal/app"
	"github.com/okian/visionauth/internal/domain/model"
)

const maxBodyBytes = 1 << 12

// SessionHandler maps session endpoints onto user actions.
type SessionHandler struct {
	ctrl Controller
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(ctrl Controller) *SessionHandler {
	return &SessionHandler{ctrl: ctrl}
}

// sessionResponse is the JSON view of app.Snapshot.
type sessionResponse struct {
	State       string          `json:"state"`
	SessionID   string          `json:"session_id,omitempty"`
	Mode        model.Mode      `json:"mode,omitempty"`
	ModeName    string          `json:"mode_name,omitempty"`
	Feature     model.Feature   `json:"feature,omitempty"`
	FeatureName string          `json:"feature_name,omitempty"`
	Detecting   bool            `json:"detecting"`
	Mock        bool            `json:"mock"`
	Result      *resultResponse `json:"result,omitempty"`
}

type resultResponse struct {
	Label             string    `json:"label"`
	ConfidencePercent int       `json:"confidence_percent"`
	Seq               uint64    `json:"seq"`
	At                time.Time `json:"at"`
}

func toResponse(s app.Snapshot) sessionResponse {
	out := sessionResponse{
		State:       s.State.String(),
		SessionID:   s.SessionID,
		Mode:        s.Mode,
		ModeName:    s.Mode.DisplayName(),
		Feature:     s.Feature,
		FeatureName: s.Feature.DisplayName(),
		Detecting:   s.Detecting,
		Mock:        s.Mock,
	}
	if s.Result != nil {
		out.Result = &resultResponse{
			Label:             s.Result.Label,
			ConfidencePercent: s.Result.ConfidencePercent,
			Seq:               s.Result.Seq,
			At:                s.Result.At,
		}
	}
	return out
}

// HandleGet handles GET /api/session.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toResponse(h.ctrl.Snapshot()))
}

type modeRequest struct {
	Mode string `json:"mode"`
}

// HandleMode handles POST /api/session/mode.
func (h *SessionHandler) HandleMode(w http.ResponseWriter, r *http.Request) {
	const op = "select mode"
	var req modeRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	mode, err := model.ParseMode(req.Mode)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	h.act(w, r, app.Action{Kind: app.ActionSelectMode, Mode: mode})
}

type featureRequest struct {
	Feature string `json:"feature"`
}

// HandleFeature handles POST /api/session/feature.
func (h *SessionHandler) HandleFeature(w http.ResponseWriter, r *http.Request) {
	const op = "select feature"
	var req featureRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	feature, err := model.ParseFeature(req.Feature)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	h.act(w, r, app.Action{Kind: app.ActionSelectFeature, Feature: feature})
}

// HandleStart handles POST /api/session/start.
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, app.Action{Kind: app.ActionStart})
}

// HandleStop handles POST /api/session/stop.
func (h *SessionHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, app.Action{Kind: app.ActionStop})
}

// HandleReset handles POST /api/session/reset.
func (h *SessionHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, app.Action{Kind: app.ActionReset})
}

type actionRequest struct {
	Action  string `json:"action"`
	Mode    string `json:"mode,omitempty"`
	Feature string `json:"feature,omitempty"`
}

// HandleAction handles POST /api/session/action, a single entry point for
// every user action.
func (h *SessionHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	const op = "action"
	var req actionRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	a := app.Action{Kind: app.ActionKind(req.Action)}
	var err error
	switch a.Kind {
	case app.ActionSelectMode:
		a.Mode, err = model.ParseMode(req.Mode)
	case app.ActionSelectFeature:
		a.Feature, err = model.ParseFeature(req.Feature)
	}
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	h.act(w, r, a)
}

type sizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// HandleResize handles POST /api/canvas/size.
func (h *SessionHandler) HandleResize(w http.ResponseWriter, r *http.Request) {
	const op = "resize"
	var req sizeRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.ctrl.Resize(req.Width, req.Height); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// act runs a and answers with the resulting snapshot.
func (h *SessionHandler) act(w http.ResponseWriter, r *http.Request, a app.Action) {
	if err := h.ctrl.OnUserAction(r.Context(), a); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(h.ctrl.Snapshot()))
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
