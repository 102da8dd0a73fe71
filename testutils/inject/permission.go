package inject

import (
	"sync"

	"go.viam.com/sensorkit/source"
)

// PermissionAuthority is an injected OS permission authority.
type PermissionAuthority struct {
	mu       sync.Mutex
	status   source.Availability
	requests []func(source.Availability)

	StatusFunc  func() source.Availability
	RequestFunc func(done func(source.Availability))
}

// NewPermissionAuthority returns an authority reporting status until told otherwise.
func NewPermissionAuthority(status source.Availability) *PermissionAuthority {
	return &PermissionAuthority{status: status}
}

// Status calls the injected StatusFunc or the default.
func (pa *PermissionAuthority) Status() source.Availability {
	if pa.StatusFunc == nil {
		pa.mu.Lock()
		defer pa.mu.Unlock()
		return pa.status
	}
	return pa.StatusFunc()
}

// SetStatus changes the status the default Status reports.
func (pa *PermissionAuthority) SetStatus(status source.Availability) {
	pa.mu.Lock()
	defer pa.mu.Unlock()
	pa.status = status
}

// Request calls the injected RequestFunc. By default the request stays pending until Answer.
func (pa *PermissionAuthority) Request(done func(source.Availability)) {
	if pa.RequestFunc == nil {
		pa.mu.Lock()
		defer pa.mu.Unlock()
		pa.requests = append(pa.requests, done)
		return
	}
	pa.RequestFunc(done)
}

// Pending returns how many default requests are unanswered.
func (pa *PermissionAuthority) Pending() int {
	pa.mu.Lock()
	defer pa.mu.Unlock()
	return len(pa.requests)
}

// Answer sets the status and completes every pending default request with it.
func (pa *PermissionAuthority) Answer(status source.Availability) {
	pa.mu.Lock()
	pa.status = status
	requests := pa.requests
	pa.requests = nil
	pa.mu.Unlock()

	for _, done := range requests {
		done(status)
	}
}
