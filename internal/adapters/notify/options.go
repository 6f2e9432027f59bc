package notify

import "time"

// Option applies a configuration option to the Queue.
type Option func(*Queue)

// WithCapacity sets the maximum number of pending notifications.
func WithCapacity(capacity int) Option {
	return func(q *Queue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}
