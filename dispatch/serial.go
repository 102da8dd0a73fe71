package dispatch

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"go.viam.com/sensorkit/logging"
	"go.viam.com/sensorkit/utils"
)

// SerialQueue delivers work on a single dedicated goroutine. Dispatch never blocks; pending work
// is buffered without bound.
type SerialQueue struct {
	logger logging.Logger

	mu      sync.Mutex
	pending []func()
	closed  bool
	wake    chan struct{}

	delivered *atomic.Uint64
	panics    *atomic.Uint64

	workers *utils.StoppableWorkers
}

// NewSerialQueue starts a queue backed by one worker goroutine.
func NewSerialQueue(logger logging.Logger) *SerialQueue {
	q := &SerialQueue{
		logger:    logger,
		wake:      make(chan struct{}, 1),
		delivered: atomic.NewUint64(0),
		panics:    atomic.NewUint64(0),
	}
	q.workers = utils.NewStoppableWorkers(q.run)
	return q
}

// Dispatch appends fn to the queue.
func (q *SerialQueue) Dispatch(fn func()) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.enqueueLocked(fn)
	q.mu.Unlock()
	return nil
}

func (q *SerialQueue) enqueueLocked(fn func()) {
	q.pending = append(q.pending, fn)
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Sync blocks until everything dispatched before the call has run.
func (q *SerialQueue) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if err := q.Dispatch(func() { close(done) }); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delivered reports how many work items have run so far.
func (q *SerialQueue) Delivered() uint64 {
	return q.delivered.Load()
}

// Panics reports how many work items panicked.
func (q *SerialQueue) Panics() uint64 {
	return q.panics.Load()
}

// Close rejects new work, runs whatever is still pending and stops the worker. It is idempotent.
func (q *SerialQueue) Close() {
	drained := make(chan struct{})
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.workers.Stop()
		return
	}
	q.closed = true
	q.enqueueLocked(func() { close(drained) })
	q.mu.Unlock()

	select {
	case <-drained:
	case <-q.workers.Context().Done():
	}
	q.workers.Stop()
}

func (q *SerialQueue) run(ctx context.Context) {
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
			}
			continue
		}
		for _, fn := range batch {
			q.invoke(fn)
		}
	}
}

// invoke runs one work item. A panicking listener is logged and does not take the queue down.
func (q *SerialQueue) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.panics.Inc()
			q.logger.Errorw("recovered from panic in dispatched work", "panic", r)
		}
		q.delivered.Inc()
	}()
	fn()
}
