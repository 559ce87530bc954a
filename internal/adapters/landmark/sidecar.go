package landmark

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/okian/visionauth/internal/adapters/capture"
	"github.com/okian/visionauth/internal/adapters/mq/queue"
	"github.com/okian/visionauth/internal/adapters/mq/worker"
	"github.com/okian/visionauth/pkg/logger"
	"github.com/okian/visionauth/pkg/metrics"
)

const (
	sourceSidecar = "sidecar"

	defaultHandshakeTimeout = 5 * time.Second
	defaultReplyTimeout     = 2 * time.Second
	readRetryDelay          = 50 * time.Millisecond
	writeTimeout            = time.Second

	// maxReplySize fits a landmarks reply for a 468 point mesh (about 5 KiB
	// of msgpack) with room for denser models.
	maxReplySize = 32 * 1024
)

// SidecarSource streams camera frames to an external landmark detector
// over a websocket and forwards its replies. At most one frame is in flight;
// replies pass through a one slot drop-oldest mailbox so a slow renderer
// never stalls the network reader.
type SidecarSource struct {
	url     string
	cfg     Config
	device  capture.Device
	onFrame Handler

	handshakeTimeout time.Duration
	replyTimeout     time.Duration
	logger           logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	conn    *websocket.Conn
	mailbox *queue.InMemoryQueue
	worker  *worker.InMemoryWorker
	wg      sync.WaitGroup

	writeMu sync.Mutex
	credit  chan struct{}
}

// SidecarOption configures a SidecarSource.
type SidecarOption func(*SidecarSource)

// WithHandshakeTimeout bounds the dial plus hello/ready exchange.
func WithHandshakeTimeout(d time.Duration) SidecarOption {
	return func(s *SidecarSource) {
		if d > 0 {
			s.handshakeTimeout = d
		}
	}
}

// WithReplyTimeout bounds how long a frame may stay unanswered before the
// next one is sent anyway.
func WithReplyTimeout(d time.Duration) SidecarOption {
	return func(s *SidecarSource) {
		if d > 0 {
			s.replyTimeout = d
		}
	}
}

// WithSidecarLogger sets the logger.
func WithSidecarLogger(l logger.Logger) SidecarOption {
	return func(s *SidecarSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSidecar creates a source that talks to the detector at url.
func NewSidecar(url string, device capture.Device, cfg Config, onFrame Handler, opts ...SidecarOption) (*SidecarSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if device == nil || onFrame == nil {
		return nil, fmt.Errorf("%w: device and frame handler are required", ErrInvalidConfig)
	}
	s := &SidecarSource{
		url:              url,
		cfg:              cfg,
		device:           device,
		onFrame:          onFrame,
		handshakeTimeout: defaultHandshakeTimeout,
		replyTimeout:     defaultReplyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named(sourceSidecar)
	}
	return s, nil
}

// SidecarFactory returns a Factory that opens a fresh device per session.
func SidecarFactory(url string, newDevice func() capture.Device, opts ...SidecarOption) Factory {
	return func(cfg Config, onFrame Handler) (Source, error) {
		return NewSidecar(url, newDevice(), cfg, onFrame, opts...)
	}
}

// Start implements Source.
func (s *SidecarSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if err := s.device.Open(ctx, s.cfg.Width, s.cfg.Height); err != nil {
		metrics.RecordSourceError(sourceSidecar, "device")
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	conn, err := s.dial(ctx)
	if err != nil {
		_ = s.device.Close()
		metrics.RecordSourceError(sourceSidecar, "dial")
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.conn = conn
	s.cancel = cancel
	s.credit = make(chan struct{}, 1)
	s.mailbox = queue.NewInMemoryQueue(queue.WithCapacity(1), queue.WithOverflow(queue.DropOldest))
	s.worker = worker.NewInMemoryWorker(s.mailbox, s.deliver,
		worker.WithName("sidecar_frames"),
		worker.WithLogger(s.logger),
	)

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		s.worker.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.readLoop(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.sendLoop(runCtx)
	}()

	s.running = true
	s.logger.Info(ctx, "sidecar source started",
		logger.String("url", s.url),
		logger.Int("width", s.cfg.Width),
		logger.Int("height", s.cfg.Height),
		logger.Bool("refine", s.cfg.RefineLandmarks),
	)
	return nil
}

func (s *SidecarSource) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: s.handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", s.url, err)
	}
	conn.SetReadLimit(maxReplySize)
	if err := s.handshake(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}
	return conn, nil
}

func (s *SidecarSource) handshake(conn *websocket.Conn) error {
	hello, err := msgpack.Marshal(helloFor(s.cfg))
	if err != nil {
		return fmt.Errorf("encode hello: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(s.handshakeTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, hello); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Time{})

	_ = conn.SetReadDeadline(time.Now().Add(s.handshakeTimeout))
	_, data, err := conn.ReadMessage()
	_ = conn.SetReadDeadline(time.Time{})
	if err != nil {
		return fmt.Errorf("wait for ready: %w", err)
	}

	var ready readyMsg
	if err := msgpack.Unmarshal(data, &ready); err != nil {
		return fmt.Errorf("decode ready: %w", err)
	}
	switch {
	case ready.Type == msgError:
		return fmt.Errorf("sidecar refused session: %s", ready.Error)
	case ready.Type != msgReady:
		return fmt.Errorf("expected %s, got %q", msgReady, ready.Type)
	case ready.Version != protocolVersion:
		return fmt.Errorf("protocol version %d, want %d", ready.Version, protocolVersion)
	}
	return nil
}

// sendLoop reads the device and ships frames while holding the credit.
func (s *SidecarSource) sendLoop(ctx context.Context) {
	var seq uint64
	for ctx.Err() == nil {
		select {
		case s.credit <- struct{}{}:
		case <-ctx.Done():
			return
		case <-time.After(s.replyTimeout):
			// The reply was lost; take the credit back.
			select {
			case <-s.credit:
			default:
			}
			metrics.RecordSourceError(sourceSidecar, "reply_timeout")
			continue
		}

		data, err := s.device.ReadJPEG()
		if err != nil {
			s.release()
			metrics.RecordSourceError(sourceSidecar, "capture")
			s.logger.Debug(ctx, "capture read failed", logger.Error(err))
			if errors.Is(err, capture.ErrNotOpen) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(readRetryDelay):
			}
			continue
		}

		seq++
		if err := s.send(frameMsg{Type: msgFrame, Seq: seq, Width: s.cfg.Width, Height: s.cfg.Height, Data: data}); err != nil {
			s.release()
			if ctx.Err() != nil {
				return
			}
			metrics.RecordSourceError(sourceSidecar, "send")
			s.logger.Warn(ctx, "send frame failed", logger.Error(err))
			return
		}
	}
}

func (s *SidecarSource) send(msg frameMsg) error {
	data, err := msgpack.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (s *SidecarSource) release() {
	select {
	case <-s.credit:
	default:
	}
}

// readLoop decodes replies and posts them to the mailbox.
func (s *SidecarSource) readLoop(ctx context.Context) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				metrics.RecordSourceError(sourceSidecar, "read")
				s.logger.Warn(ctx, "sidecar connection lost", logger.Error(err))
			}
			return
		}

		var msg landmarksMsg
		if err := msgpack.Unmarshal(data, &msg); err != nil {
			metrics.RecordSourceError(sourceSidecar, "decode")
			s.logger.Debug(ctx, "bad sidecar message", logger.Error(err))
			continue
		}
		if msg.Type == msgError {
			s.release()
			metrics.RecordSourceError(sourceSidecar, "remote")
			s.logger.Debug(ctx, "sidecar frame error", logger.String("error", msg.Error))
			continue
		}
		if msg.Type != msgLandmarks {
			continue
		}
		s.release()

		frame, err := decodeFrame(msg)
		if err != nil {
			metrics.RecordSourceError(sourceSidecar, "decode")
			continue
		}
		s.mailbox.Enqueue(ctx, queue.Item{Frame: frame, Received: time.Now()})
	}
}

func (s *SidecarSource) deliver(_ context.Context, it queue.Item) error {
	s.onFrame(it.Frame)
	return nil
}

// Stop implements Source. It closes the connection, drains the worker and
// releases the device.
func (s *SidecarSource) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	s.cancel()
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stop"),
		time.Now().Add(writeTimeout))
	s.writeMu.Unlock()
	_ = s.conn.Close()
	_ = s.mailbox.Close()

	var errs []error
	if err := s.worker.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	waited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("wait for sidecar loops: %w", ctx.Err()))
	}

	if err := s.device.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close device: %w", err))
	}
	s.logger.Info(ctx, "sidecar source stopped")
	return errors.Join(errs...)
}

var _ Source = (*SidecarSource)(nil)
