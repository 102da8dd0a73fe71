// Package notify implements the publish/subscribe core behind properties and source events.
package notify

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"go.viam.com/sensorkit/dispatch"
)

// A Listener receives every value published on a Subject after it subscribed.
type Listener[T any] func(T)

type subscription[T any] struct {
	id       uuid.UUID
	listener Listener[T]
	active   *atomic.Bool
}

// Subject fans values out to its listeners through a dispatch.Queue. Listeners see values in the
// order Notify was called. Subscribing and unsubscribing are safe from any goroutine, including
// from inside a listener while a notification is being delivered.
type Subject[T any] struct {
	queue dispatch.Queue

	mu            sync.RWMutex
	subscriptions []*subscription[T]

	published *atomic.Uint64
}

// NewSubject returns a Subject delivering on queue. A nil queue delivers inline.
func NewSubject[T any](queue dispatch.Queue) *Subject[T] {
	if queue == nil {
		queue = dispatch.NewInline()
	}
	return &Subject[T]{queue: queue, published: atomic.NewUint64(0)}
}

// Subscribe registers listener. The returned Token must be kept; calling Unsubscribe on it is
// the only way to remove the registration.
func (s *Subject[T]) Subscribe(listener Listener[T]) *Token {
	sub := &subscription[T]{id: uuid.New(), listener: listener, active: atomic.NewBool(true)}

	s.mu.Lock()
	s.subscriptions = append(s.subscriptions, sub)
	s.mu.Unlock()

	return newToken(sub.id, func() { s.remove(sub) })
}

func (s *Subject[T]) remove(sub *subscription[T]) {
	sub.active.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.subscriptions {
		if existing == sub {
			// Copy-on-write so in-flight deliveries keep iterating their own slice.
			updated := make([]*subscription[T], 0, len(s.subscriptions)-1)
			updated = append(updated, s.subscriptions[:i]...)
			s.subscriptions = append(updated, s.subscriptions[i+1:]...)
			return
		}
	}
}

// Len returns the number of live subscriptions.
func (s *Subject[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscriptions)
}

// Published returns how many values have been handed to Notify with at least one listener.
func (s *Subject[T]) Published() uint64 {
	return s.published.Load()
}

// Notify publishes value to the listeners subscribed at the time of the call. With zero
// listeners it is a no-op. A listener unsubscribed before its turn in an in-flight delivery is
// skipped.
func (s *Subject[T]) Notify(value T) error {
	s.mu.RLock()
	targets := s.subscriptions
	s.mu.RUnlock()

	if len(targets) == 0 {
		return nil
	}
	s.published.Inc()
	return s.queue.Dispatch(func() {
		for _, sub := range targets {
			if sub.active.Load() {
				sub.listener(value)
			}
		}
	})
}
