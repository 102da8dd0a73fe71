// Package dispatch provides the execution contexts update notifications are delivered on.
//
// Every Queue guarantees that work items dispatched to it never run concurrently with each other
// and run in the order they were dispatched. Hardware callbacks may arrive on any goroutine; the
// queue is what turns them into a single consistent delivery context for listeners.
package dispatch

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrQueueClosed is returned when work is handed to a queue that has been closed.
var ErrQueueClosed = errors.New("dispatch queue closed")

// A Queue runs work items one at a time, in dispatch order.
type Queue interface {
	// Dispatch schedules fn. It never blocks on fn completing unless the queue is inline.
	Dispatch(fn func()) error
}

// inline runs work on the dispatching goroutine. Work dispatched while the queue is already
// running, including from inside a work item, is appended and run by the goroutine that is
// draining it once the current item returns.
type inline struct {
	mu       sync.Mutex
	pending  []func()
	draining bool
}

// NewInline returns a Queue that runs work synchronously on the caller's goroutine, unless
// another dispatcher is already draining the queue, in which case that dispatcher runs it.
func NewInline() Queue {
	return &inline{}
}

func (q *inline) Dispatch(fn func()) error {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	if q.draining {
		q.mu.Unlock()
		return nil
	}
	q.draining = true
	q.mu.Unlock()

	q.drain()
	return nil
}

func (q *inline) drain() {
	finished := false
	defer func() {
		if finished {
			return
		}
		// fn panicked; let the next dispatcher pick up what is left.
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			finished = true
			return
		}
		next := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		next()
	}
}
