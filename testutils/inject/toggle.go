package inject

import (
	"sync"
)

// Toggle is an injected hardware toggle. Without injected funcs it behaves like a plain flag.
type Toggle struct {
	mu      sync.Mutex
	enabled bool
	sets    []bool

	EnabledFunc    func() bool
	SetEnabledFunc func(enabled bool) error
}

// NewToggle returns a disabled injected toggle.
func NewToggle() *Toggle {
	return &Toggle{}
}

// Enabled calls the injected EnabledFunc or the default.
func (t *Toggle) Enabled() bool {
	if t.EnabledFunc == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.enabled
	}
	return t.EnabledFunc()
}

// SetEnabled calls the injected SetEnabledFunc or the default. Every call is recorded.
func (t *Toggle) SetEnabled(enabled bool) error {
	t.mu.Lock()
	t.sets = append(t.sets, enabled)
	t.mu.Unlock()
	if t.SetEnabledFunc == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.enabled = enabled
		return nil
	}
	return t.SetEnabledFunc(enabled)
}

// SetCalls returns the arguments of every SetEnabled call so far.
func (t *Toggle) SetCalls() []bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]bool(nil), t.sets...)
}
