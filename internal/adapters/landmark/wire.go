package landmark

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/okian/visionauth/internal/domain/model"
)

// Sidecar message types. Every message is a msgpack map in a binary
// websocket frame.
const (
	msgHello     = "hello"
	msgReady     = "ready"
	msgFrame     = "frame"
	msgLandmarks = "landmarks"
	msgError     = "error"

	protocolVersion = 1
)

// helloMsg opens a session and carries the detector tuning.
type helloMsg struct {
	Type         string  `msgpack:"t"`
	Version      int     `msgpack:"v"`
	MaxFaces     int     `msgpack:"mf"`
	Refine       bool    `msgpack:"rl"`
	MinDetection float64 `msgpack:"md"`
	MinTracking  float64 `msgpack:"mt"`
	Width        int     `msgpack:"w"`
	Height       int     `msgpack:"h"`
}

// readyMsg acknowledges hello.
type readyMsg struct {
	Type    string `msgpack:"t"`
	Version int    `msgpack:"v"`
	Model   string `msgpack:"m"`
	Points  int    `msgpack:"n"`
	Error   string `msgpack:"e,omitempty"`
}

// frameMsg carries one JPEG encoded camera frame.
type frameMsg struct {
	Type   string `msgpack:"t"`
	Seq    uint64 `msgpack:"s"`
	Width  int    `msgpack:"w"`
	Height int    `msgpack:"h"`
	Data   []byte `msgpack:"d"`
}

// landmarksMsg answers one frameMsg. Faces is empty when nothing was found.
type landmarksMsg struct {
	Type        string    `msgpack:"t"`
	Seq         uint64    `msgpack:"s"`
	Faces       []faceMsg `msgpack:"f"`
	InferenceMs float32   `msgpack:"ms"`
	Error       string    `msgpack:"e,omitempty"`
}

// faceMsg holds normalized landmarks as [x0,y0, x1,y1, ...]. NaN marks a
// point the detector did not report; infinities are read as missing too.
type faceMsg struct {
	Score     float32   `msgpack:"c"`
	Landmarks []float32 `msgpack:"l"`
}

func helloFor(cfg Config) helloMsg {
	return helloMsg{
		Type:         msgHello,
		Version:      protocolVersion,
		MaxFaces:     cfg.MaxFaces,
		Refine:       cfg.RefineLandmarks,
		MinDetection: cfg.MinDetectionConfidence,
		MinTracking:  cfg.MinTrackingConfidence,
		Width:        cfg.Width,
		Height:       cfg.Height,
	}
}

func encodeFace(f *model.LandmarkFrame) faceMsg {
	flat := make([]float32, 0, 2*len(f.Points))
	for _, p := range f.Points {
		flat = append(flat, float32(p.X), float32(p.Y))
	}
	return faceMsg{Score: 1, Landmarks: flat}
}

// decodeFrame converts a reply into a frame. Only the first face is used.
func decodeFrame(msg landmarksMsg) (*model.LandmarkFrame, error) {
	if len(msg.Faces) == 0 {
		return nil, nil
	}
	flat := msg.Faces[0].Landmarks
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("odd landmark array length %d", len(flat))
	}
	pts := make([]model.Point, len(flat)/2)
	for i := range pts {
		x, y := float64(flat[2*i]), float64(flat[2*i+1])
		p := model.Point{X: x, Y: y}
		if !p.Present() {
			p = model.Missing
		}
		pts[i] = p
	}
	return &model.LandmarkFrame{Points: pts, Seq: msg.Seq}, nil
}

// peekType reads only the t field of a message.
func peekType(data []byte) (string, error) {
	var env struct {
		Type string `msgpack:"t"`
	}
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("decode message: %w", err)
	}
	return env.Type, nil
}
