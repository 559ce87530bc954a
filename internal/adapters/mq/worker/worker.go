// Package worker drains the frame mailbox on a single goroutine so frame
// handling never runs concurrently with itself.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/visionauth/internal/adapters/mq/queue"
	"github.com/okian/visionauth/pkg/logger"
	"github.com/okian/visionauth/pkg/metrics"
)

// Handler processes one dequeued item.
type Handler func(ctx context.Context, it queue.Item) error

// Queue defines how workers receive items.
type Queue interface {
	Dequeue() <-chan queue.Item
}

// Worker processes queued items.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called,
	// or the queue is closed.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the loop to exit.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for a single consumer.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, h Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		handler:  h,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case it, ok := <-items:
			if !ok {
				return
			}
			if err := w.process(ctx, it); err != nil {
				w.logger.Warn(ctx, "error processing item", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker. Items still queued are dropped. It is safe to
// call more than once.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, it queue.Item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent(w.name, "panic")
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	start := time.Now()
	if err := w.handler(ctx, it); err != nil {
		metrics.RecordErrorByComponent(w.name, "handler_error")
		return fmt.Errorf("handle item after %s: %w", time.Since(start), err)
	}
	return nil
}
