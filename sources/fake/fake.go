// Package fake implements simulated sources. They are registered under the "fake" namespace and
// behave like OS backed sources: they share hardware toggles through the arbiter, ask for
// permission and deliver readings from their own goroutines.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	goutils "go.viam.com/utils"

	"go.viam.com/sensorkit/property"
	"go.viam.com/sensorkit/registry"
	"go.viam.com/sensorkit/source"
)

// Namespace is the kind namespace of all simulated sources.
const Namespace = "fake"

func clockOrDefault(deps registry.Dependencies) clock.Clock {
	if deps.Clock == nil {
		return clock.New()
	}
	return deps.Clock
}

func propertyOptions(deps registry.Dependencies) []property.Option {
	return []property.Option{property.WithQueue(deps.Queue), property.WithClock(clockOrDefault(deps))}
}

// tickingMonitor calls next on every tick and delivers what it returns. stop cancels the loop
// without waiting for it, so it is safe to call from inside a delivery.
func tickingMonitor[R any](clk clock.Clock, interval time.Duration, next func() source.Result[R]) source.Monitor[R] {
	return source.MonitorFunc[R](func(deliver func(source.Result[R])) (func(), error) {
		ctx, cancel := context.WithCancel(context.Background())
		ticker := clk.Ticker(interval)
		goutils.PanicCapturingGo(func() {
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
				if ctx.Err() != nil {
					return
				}
				deliver(next())
			}
		})
		return cancel, nil
	})
}

// pushMonitor hands the registered callback to the source so it can push readings on demand.
type pushMonitor[R any] struct {
	mu      sync.Mutex
	deliver func(source.Result[R])
}

func (m *pushMonitor[R]) Start(deliver func(source.Result[R])) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliver = deliver
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.deliver = nil
	}, nil
}

func (m *pushMonitor[R]) push(result source.Result[R]) bool {
	m.mu.Lock()
	deliver := m.deliver
	m.mu.Unlock()
	if deliver == nil {
		return false
	}
	deliver(result)
	return true
}
