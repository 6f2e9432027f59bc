// Package notify carries user-facing notifications (the toasts of the UI)
// from the flows that raise them to whatever renders them.
//
// Publishing never blocks: when the queue is full the notification is
// dropped and counted.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/evently/pkg/metrics"
)

const defaultCapacity = 64

// Level classifies a notification.
type Level string

// Notification levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one message for the user.
type Notification struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Queue is a bounded in-memory notification queue.
type Queue struct {
	items    chan Notification
	capacity int
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a queue with configuration options.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		capacity: defaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Notification, q.capacity)
	metrics.UpdateNotificationBacklog(0)
	return q
}

// Publish builds and enqueues a notification. It reports whether the
// notification was accepted.
func (q *Queue) Publish(ctx context.Context, level Level, message string) bool {
	return q.Enqueue(ctx, Notification{
		ID:      uuid.NewString(),
		Level:   level,
		Message: message,
		Time:    q.now(),
	})
}

// Enqueue adds n without blocking. It returns false when the queue is closed,
// full, or ctx is already done.
func (q *Queue) Enqueue(ctx context.Context, n Notification) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || ctx.Err() != nil {
		metrics.RecordNotificationDropped()
		return false
	}

	select {
	case q.items <- n:
		metrics.RecordNotificationPublished(string(n.Level))
		metrics.UpdateNotificationBacklog(len(q.items))
		return true
	default:
		metrics.RecordNotificationDropped()
		return false
	}
}

// Notifications exposes the queue for a long-running renderer. The channel is
// closed by Close.
func (q *Queue) Notifications() <-chan Notification {
	return q.items
}

// Drain removes and returns everything currently queued.
func (q *Queue) Drain() []Notification {
	var out []Notification
	for {
		select {
		case n, ok := <-q.items:
			if !ok {
				metrics.UpdateNotificationBacklog(0)
				return out
			}
			out = append(out, n)
		default:
			metrics.UpdateNotificationBacklog(len(q.items))
			return out
		}
	}
}

// Len returns the number of queued notifications.
func (q *Queue) Len() int {
	return len(q.items)
}

// Close stops accepting notifications. Already queued ones can still be
// read.
func (q *Queue) Close() error {
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
func (q *Queue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
