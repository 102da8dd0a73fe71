package fake

import (
	"sync"

	"go.viam.com/sensorkit/source"
)

// Authority simulates an OS permission prompt that the user answers with a fixed choice.
type Authority struct {
	mu     sync.Mutex
	status source.Availability
	answer source.Availability
}

// NewAuthority starts at status and answers every prompt with answer.
func NewAuthority(status, answer source.Availability) *Authority {
	return &Authority{status: status, answer: answer}
}

// Status returns the current availability.
func (a *Authority) Status() source.Availability {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Request answers the prompt immediately.
func (a *Authority) Request(done func(source.Availability)) {
	a.mu.Lock()
	a.status = a.answer
	answer := a.answer
	a.mu.Unlock()
	done(answer)
}

// Revoke simulates the user withdrawing access in the OS settings.
func (a *Authority) Revoke() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = source.PermissionDenied
}
