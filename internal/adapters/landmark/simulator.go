package landmark

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // frames arrive as JPEG
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/okian/visionauth/internal/domain/model"
	"github.com/okian/visionauth/internal/domain/topology"
	"github.com/okian/visionauth/pkg/logger"
)

const simulatorModel = "synthetic-face-mesh"

// FaceFunc produces the detector output for frame seq. Returning nil
// reports no face.
type FaceFunc func(seq uint64) *model.LandmarkFrame

// Simulator is an http.Handler that speaks the sidecar protocol and answers
// every frame with a synthetic face. It lets the sidecar path run without
// a real detector.
type Simulator struct {
	upgrader  websocket.Upgrader
	face      FaceFunc
	dropEvery int
	latency   time.Duration
	logger    logger.Logger
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithFace replaces the synthetic face generator.
func WithFace(f FaceFunc) SimulatorOption {
	return func(s *Simulator) {
		if f != nil {
			s.face = f
		}
	}
}

// WithSimulatedDropEvery answers every n-th frame with no face.
func WithSimulatedDropEvery(n int) SimulatorOption {
	return func(s *Simulator) {
		if n > 0 {
			s.dropEvery = n
		}
	}
}

// WithLatency delays every reply, imitating inference time.
func WithLatency(d time.Duration) SimulatorOption {
	return func(s *Simulator) {
		if d > 0 {
			s.latency = d
		}
	}
}

// WithSimulatorLogger sets the logger.
func WithSimulatorLogger(l logger.Logger) SimulatorOption {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSimulator creates a simulator.
func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 16,
			WriteBufferSize: 1 << 16,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		face: SyntheticFace,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("sidecar_sim")
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Simulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	if err := s.accept(conn); err != nil {
		s.logger.Warn(ctx, "session refused", logger.Error(err))
		return
	}
	s.serve(ctx, conn)
}

func (s *Simulator) accept(conn *websocket.Conn) error {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	var hello helloMsg
	if err := msgpack.Unmarshal(data, &hello); err != nil {
		return fmt.Errorf("decode hello: %w", err)
	}

	reply := readyMsg{Type: msgReady, Version: protocolVersion, Model: simulatorModel, Points: topology.ModelPoints}
	var refuse error
	switch {
	case hello.Type != msgHello:
		refuse = fmt.Errorf("expected %s, got %q", msgHello, hello.Type)
	case hello.Version != protocolVersion:
		refuse = fmt.Errorf("unsupported protocol version %d", hello.Version)
	case hello.MaxFaces != 1:
		refuse = fmt.Errorf("max faces %d not supported", hello.MaxFaces)
	}
	if refuse != nil {
		reply = readyMsg{Type: msgError, Version: protocolVersion, Error: refuse.Error()}
	}

	out, err := msgpack.Marshal(reply)
	if err != nil {
		return fmt.Errorf("encode ready: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, out); err != nil {
		return fmt.Errorf("send ready: %w", err)
	}
	return refuse
}

func (s *Simulator) serve(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug(ctx, "client gone", logger.Error(err))
			}
			return
		}

		typ, err := peekType(data)
		if err != nil || typ != msgFrame {
			continue
		}

		reply := s.answer(data)
		if s.latency > 0 {
			time.Sleep(s.latency)
		}
		out, err := msgpack.Marshal(reply)
		if err != nil {
			s.logger.Error(ctx, "encode reply", logger.Error(err))
			return
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, out); err != nil {
			return
		}
	}
}

func (s *Simulator) answer(data []byte) landmarksMsg {
	start := time.Now()
	var frame frameMsg
	if err := msgpack.Unmarshal(data, &frame); err != nil {
		return landmarksMsg{Type: msgError, Error: err.Error()}
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(frame.Data)); err != nil {
		return landmarksMsg{Type: msgError, Seq: frame.Seq, Error: fmt.Sprintf("bad image: %v", err)}
	}

	reply := landmarksMsg{Type: msgLandmarks, Seq: frame.Seq}
	if s.dropEvery == 0 || frame.Seq%uint64(s.dropEvery) != 0 {
		if f := s.face(frame.Seq); f != nil {
			reply.Faces = []faceMsg{encodeFace(f)}
		}
	}
	reply.InferenceMs = float32(time.Since(start).Seconds() * 1000)
	return reply
}
