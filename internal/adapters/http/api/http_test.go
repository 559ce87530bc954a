package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/visionauth/internal/adapters/canvas"
	"github.com/okian/visionauth/internal/adapters/http/api"
	"github.com/okian/visionauth/internal/adapters/landmark"
	"github.com/okian/visionauth/internal/app"
	"github.com/okian/visionauth/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

type testServer struct {
	mux  *http.ServeMux
	ctrl *app.Controller
}

func newTestServer(opts ...landmark.SyntheticOption) *testServer {
	raster := canvas.NewRaster(320, 240)
	ctrl := app.New(raster, nil, landmark.SyntheticFactory(opts...))
	mux := http.NewServeMux()
	api.NewServer(ctrl, raster, nil).Register(context.Background(), mux)
	return &testServer{mux: mux, ctrl: ctrl}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	return w
}

type sessionBody struct {
	State     string `json:"state"`
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
	ModeName  string `json:"mode_name"`
	Feature   string `json:"feature"`
	Mock      bool   `json:"mock"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeInto[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func TestSessionEndpoints(t *testing.T) {
	Convey("Given the API over a synthetic source", t, func() {
		s := newTestServer()
		defer s.ctrl.Stop(context.Background())

		Convey("When starting without selections", func() {
			w := s.do(http.MethodPost, "/api/session/start", "")

			Convey("Then it answers 409 configuration_incomplete", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decodeInto[errorBody](w).Code, ShouldEqual, "configuration_incomplete")
			})
		})

		Convey("When selecting an unknown mode", func() {
			w := s.do(http.MethodPost, "/api/session/mode", `{"mode":"turbo"}`)

			Convey("Then it answers 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeInto[errorBody](w).Code, ShouldEqual, "bad_request")
			})
		})

		Convey("When the body is malformed", func() {
			w := s.do(http.MethodPost, "/api/session/feature", `{"feature":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a full session is driven", func() {
			So(s.do(http.MethodPost, "/api/session/mode", `{"mode":"performance"}`).Code, ShouldEqual, http.StatusOK)
			So(s.do(http.MethodPost, "/api/session/feature", `{"feature":"emotions"}`).Code, ShouldEqual, http.StatusOK)
			started := s.do(http.MethodPost, "/api/session/start", "")

			Convey("Then the session runs with an id", func() {
				So(started.Code, ShouldEqual, http.StatusOK)
				body := decodeInto[sessionBody](started)
				So(body.State, ShouldEqual, "running")
				So(body.SessionID, ShouldNotBeEmpty)
				So(body.ModeName, ShouldEqual, "Performance Mode")
				So(body.Mock, ShouldBeTrue)

				get := decodeInto[sessionBody](s.do(http.MethodGet, "/api/session", ""))
				So(get.SessionID, ShouldEqual, body.SessionID)
			})

			Convey("Then changing the mode is a conflict", func() {
				w := s.do(http.MethodPost, "/api/session/mode", `{"mode":"accuracy"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decodeInto[errorBody](w).Code, ShouldEqual, "invalid_transition")
			})

			Convey("Then the snapshot is a PNG of the canvas", func() {
				w := s.do(http.MethodGet, "/api/snapshot.png", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "image/png")
				img, err := png.Decode(w.Body)
				So(err, ShouldBeNil)
				So(img.Bounds().Dx(), ShouldEqual, 320)
			})

			Convey("Then the canvas can be resized", func() {
				w := s.do(http.MethodPost, "/api/canvas/size", `{"width":640,"height":480}`)
				So(w.Code, ShouldEqual, http.StatusNoContent)
			})

			Convey("Then stop returns to idle and stop again is harmless", func() {
				w := s.do(http.MethodPost, "/api/session/stop", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeInto[sessionBody](w).State, ShouldEqual, "idle")
				So(s.do(http.MethodPost, "/api/session/stop", "").Code, ShouldEqual, http.StatusOK)
			})

			Convey("Then reset clears the selections", func() {
				w := s.do(http.MethodPost, "/api/session/reset", "")
				body := decodeInto[sessionBody](w)
				So(body.State, ShouldEqual, "idle")
				So(body.Mode, ShouldBeEmpty)
				So(body.Feature, ShouldBeEmpty)
			})
		})

		Convey("When using the generic action endpoint with an alias", func() {
			w := s.do(http.MethodPost, "/api/session/action", `{"action":"select_mode","mode":"precision"}`)

			Convey("Then the canonical mode is selected", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeInto[sessionBody](w).Mode, ShouldEqual, "accuracy")
			})
		})

		Convey("When an unknown action is posted", func() {
			w := s.do(http.MethodPost, "/api/session/action", `{"action":"dance"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a route is called with the wrong method", func() {
			w := s.do(http.MethodGet, "/api/session/start", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})

	Convey("Given a source that cannot start", t, func() {
		s := newTestServer(landmark.WithStartError(errors.New("no camera")))
		So(s.do(http.MethodPost, "/api/session/mode", `{"mode":"accuracy"}`).Code, ShouldEqual, http.StatusOK)
		So(s.do(http.MethodPost, "/api/session/feature", `{"feature":"age"}`).Code, ShouldEqual, http.StatusOK)

		w := s.do(http.MethodPost, "/api/session/start", "")

		So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		So(decodeInto[errorBody](w).Message, ShouldContainSubstring, "no camera")
		So(s.ctrl.State().String(), ShouldEqual, "idle")
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given the API", t, func() {
		s := newTestServer()

		Convey("Then /healthz reports ok with the session state", func() {
			w := s.do(http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			So(w.Body.String(), ShouldContainSubstring, `"session":"idle"`)
		})

		Convey("Then /metrics exposes the session metrics", func() {
			s.do(http.MethodGet, "/healthz", "")
			w := s.do(http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "visionauth_session_http_requests_total")
		})

		Convey("Then /dashboard serves the live view", func() {
			w := s.do(http.MethodGet, "/dashboard", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			So(w.Body.String(), ShouldContainSubstring, "/stream")
		})
	})
}

func TestWrapKind(t *testing.T) {
	Convey("Given a wrapped kind", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("op", api.ErrBadRequest, cause)

		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "op: bad request: boom")
		So(api.NewKind("op", api.ErrRender).Error(), ShouldEqual, "op: render failed")
	})
}
