package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of pending items.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithOverflow sets the policy applied when the mailbox is full.
func WithOverflow(o Overflow) Option {
	return func(q *InMemoryQueue) {
		q.overflow = o
	}
}
