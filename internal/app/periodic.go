package app

import (
	"context"
	"sync"
	"time"
)

// PeriodicTask calls a function right away and then once per interval on
// its own goroutine until cancelled.
type PeriodicTask struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// StartPeriodic launches fn. seq counts calls starting at 1. ctx is passed
// through to fn and also ends the task when cancelled.
func StartPeriodic(ctx context.Context, interval time.Duration, fn func(ctx context.Context, seq uint64)) *PeriodicTask {
	t := &PeriodicTask{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go t.run(ctx, interval, fn)
	return t
}

func (t *PeriodicTask) run(ctx context.Context, interval time.Duration, fn func(context.Context, uint64)) {
	defer close(t.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq uint64
	for {
		// A tick and a stop can be ready together; stop wins.
		select {
		case <-t.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		seq++
		fn(ctx, seq)

		select {
		case <-t.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Cancel stops the task and waits for an in-flight call to return. No call
// starts after Cancel returns. Extra calls are no-ops. It must not be called
// from inside fn.
func (t *PeriodicTask) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() { close(t.stop) })
	<-t.done
}

// Done is closed once the task goroutine has exited.
func (t *PeriodicTask) Done() <-chan struct{} {
	return t.done
}
