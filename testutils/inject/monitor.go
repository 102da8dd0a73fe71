package inject

import (
	"sync"

	"go.viam.com/sensorkit/source"
)

// Monitor is an injected hardware monitor. Without injected funcs it remembers the registered
// callback so tests can deliver readings by hand.
type Monitor[R any] struct {
	mu      sync.Mutex
	deliver func(source.Result[R])
	starts  int
	stops   int

	StartFunc func(deliver func(source.Result[R])) (func(), error)
}

// NewMonitor returns a new injected monitor.
func NewMonitor[R any]() *Monitor[R] {
	return &Monitor[R]{}
}

// Start calls the injected StartFunc or the default.
func (m *Monitor[R]) Start(deliver func(source.Result[R])) (func(), error) {
	if m.StartFunc != nil {
		stop, err := m.StartFunc(deliver)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.starts++
		m.deliver = deliver
		m.mu.Unlock()
		return stop, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	m.deliver = deliver
	return m.stopFunc(), nil
}

func (m *Monitor[R]) stopFunc() func() {
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.stops++
	}
}

// Deliver calls the most recently registered callback, even after stop, the way a late OS
// callback would. It returns false when nothing was ever registered.
func (m *Monitor[R]) Deliver(result source.Result[R]) bool {
	m.mu.Lock()
	deliver := m.deliver
	m.mu.Unlock()
	if deliver == nil {
		return false
	}
	deliver(result)
	return true
}

// Starts returns how many times Start succeeded.
func (m *Monitor[R]) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// Stops returns how many times a default stop function was called.
func (m *Monitor[R]) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}
