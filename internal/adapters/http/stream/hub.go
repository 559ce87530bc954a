// Package stream pushes display updates and overlay frames to browsers over
// websockets.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/okian/visionauth/internal/adapters/canvas"
	"github.com/okian/visionauth/internal/domain/model"
	"github.com/okian/visionauth/pkg/logger"
	"github.com/okian/visionauth/pkg/metrics"
)

// Message types on the wire.
const (
	TypeDisplay = "display"
	TypeOverlay = "overlay"
)

const (
	defaultBroadcastBuffer = 64
	defaultClientBuffer    = 16
)

// Envelope is the JSON shape of every message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hub tracks connected clients and fans messages out to them. Slow clients
// are dropped rather than allowed to stall the session.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	clientBuffer int
	logger       logger.Logger

	mu          sync.RWMutex
	lastDisplay []byte
	count       int
	done        chan struct{}
}

// Option configures a Hub.
type Option func(*Hub)

// WithClientBuffer sets how many messages may queue per client.
func WithClientBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.clientBuffer = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:      make(map[*client]struct{}),
		broadcast:    make(chan []byte, defaultBroadcastBuffer),
		register:     make(chan *client),
		unregister:   make(chan *client),
		clientBuffer: defaultClientBuffer,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("stream")
	}
	return h
}

// Run serves the hub until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.mu.RLock()
			last := h.lastDisplay
			h.mu.RUnlock()
			if last != nil {
				c.send <- last
			}
			h.setCount(len(h.clients))
			h.logger.Debug(ctx, "client connected", logger.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}
			h.logger.Debug(ctx, "client disconnected", logger.Int("clients", len(h.clients)))

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.drop(c)
					metrics.RecordErrorByComponent("stream", "slow_client")
					h.logger.Warn(ctx, "dropped slow client")
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.setCount(len(h.clients))
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
	metrics.UpdateStreamClients(n)
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Publish implements app.DisplaySink. The latest update is replayed to
// clients that connect later. Updates are queued in the order they are
// recorded, so the replay always matches the last broadcast.
func (h *Hub) Publish(ctx context.Context, u model.DisplayUpdate) {
	msg, err := encode(TypeDisplay, u)
	if err != nil {
		h.logger.Error(ctx, "encode display update", logger.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastDisplay = msg
	h.send(TypeDisplay, msg)
}

// PublishOverlay implements canvas.OverlaySink.
func (h *Hub) PublishOverlay(frame canvas.OverlayFrame) {
	msg, err := encode(TypeOverlay, frame)
	if err != nil {
		h.logger.Error(context.Background(), "encode overlay", logger.Error(err))
		return
	}
	h.send(TypeOverlay, msg)
}

func (h *Hub) send(typ string, msg []byte) {
	select {
	case h.broadcast <- msg:
		metrics.RecordStreamBroadcast(typ)
	default:
		metrics.RecordErrorByComponent("stream", "broadcast_full")
	}
}

func encode(typ string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", typ, err)
	}
	out, err := json.Marshal(Envelope{Type: typ, Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return out, nil
}
