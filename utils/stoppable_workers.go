package utils

import (
	"context"
	"sync"

	goutils "go.viam.com/utils"
)

// StoppableWorkers runs background goroutines that share one context and can all be stopped
// and awaited together.
type StoppableWorkers struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// NewStoppableWorkers starts each fn in its own goroutine.
func NewStoppableWorkers(fns ...func(context.Context)) *StoppableWorkers {
	ctx, cancel := context.WithCancel(context.Background())
	sw := &StoppableWorkers{ctx: ctx, cancel: cancel}
	sw.AddWorkers(fns...)
	return sw
}

// AddWorkers starts more goroutines. It does nothing once Stop was called.
func (sw *StoppableWorkers) AddWorkers(fns ...func(context.Context)) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.ctx.Err() != nil {
		return
	}
	for _, fn := range fns {
		sw.running.Add(1)
		goutils.PanicCapturingGo(func() {
			defer sw.running.Done()
			fn(sw.ctx)
		})
	}
}

// Stop cancels the shared context and waits for every worker to return. It may be called more
// than once.
func (sw *StoppableWorkers) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.cancel()
	sw.running.Wait()
}

// Context returns the context the workers watch.
func (sw *StoppableWorkers) Context() context.Context {
	return sw.ctx
}
