// Package queue defines the mailbox that decouples landmark arrival from
// rendering.
//
// The in-memory implementation keeps at most Capacity frames. On overflow it
// either drops the oldest pending frame (default, the renderer only cares
// about the newest landmarks) or rejects the incoming one.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/visionauth/internal/domain/model"
	"github.com/okian/visionauth/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1
)

// Overflow selects what happens when the mailbox is full.
type Overflow int

// Overflow policies.
const (
	DropOldest Overflow = iota
	DropNewest
)

// Item is one detector output. A nil Frame means no face in that video frame.
type Item struct {
	Frame    *model.LandmarkFrame
	Received time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue offers an item. It returns false only if the item was not
	// stored: the queue is closed, ctx is done, or the policy is DropNewest
	// and the mailbox is full.
	Enqueue(ctx context.Context, it Item) bool

	// Dequeue returns the channel items arrive on. It is closed by Close.
	Dequeue() <-chan Item

	// Len returns the current number of pending items.
	Len() int

	// Close stops accepting items and closes the dequeue channel.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan Item
	capacity int
	overflow Overflow

	mu     sync.Mutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		overflow: DropOldest,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Item, q.capacity)
	return q
}

// Enqueue adds an item, applying the overflow policy when full.
func (q *InMemoryQueue) Enqueue(ctx context.Context, it Item) bool {
	if ctx.Err() != nil {
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.items <- it:
		return true
	default:
	}

	if q.overflow == DropNewest {
		metrics.RecordFrameQueueDrop()
		return false
	}

	// The consumer may drain concurrently, so both steps are non-blocking.
	select {
	case <-q.items:
		metrics.RecordFrameQueueDrop()
	default:
	}
	select {
	case q.items <- it:
		return true
	default:
		metrics.RecordFrameQueueDrop()
		return false
	}
}

// Dequeue returns the receive side of the mailbox.
func (q *InMemoryQueue) Dequeue() <-chan Item {
	return q.items
}

// Len returns the current number of pending items.
func (q *InMemoryQueue) Len() int {
	return len(q.items)
}

// Close gracefully shuts down the queue. Pending items stay readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
