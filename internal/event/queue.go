package event

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

// Queue is a bounded FIFO event queue with a single consumer. Publishers and
// Close may race, so sends hold a read lock for the channel's lifetime.
type Queue struct {
	ch chan Event

	mu     sync.RWMutex
	closed bool
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan Event, capacity)}
}

// TryPublish enqueues an event without blocking.
func (q *Queue) TryPublish(e Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Publish enqueues an event, blocking while the queue is full.
func (q *Queue) Publish(ctx context.Context, e Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len reports the number of queued events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops the queue from accepting new events. It waits for in-flight
// publishers, so a blocked Publish must be released by its context first.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// TryNext pops the next event without blocking.
func (q *Queue) TryNext() (Event, bool) {
	select {
	case e, ok := <-q.ch:
		if !ok {
			return Event{}, false
		}
		return e, true
	default:
		return Event{}, false
	}
}

// Run consumes events in submission order until the context is done, the
// queue is closed, or the handler returns an error.
func (q *Queue) Run(ctx context.Context, handler func(Event) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-q.ch:
			if !ok {
				return nil
			}
			if err := handler(e); err != nil {
				return err
			}
		}
	}
}
