package fake

import (
	"sync"

	"github.com/pkg/errors"
)

// Toggle simulates OS settings behind one shared hardware resource. Enabling it turns on every
// flag it owns; it is enabled only while all of them are on.
type Toggle struct {
	mu      sync.Mutex
	present bool
	flags   map[string]bool
}

// NewToggle returns a disabled toggle over the named flags. A toggle that is not present fails
// to enable, like a sensor missing from the device.
func NewToggle(present bool, flags ...string) *Toggle {
	t := &Toggle{present: present, flags: map[string]bool{}}
	for _, flag := range flags {
		t.flags[flag] = false
	}
	return t
}

// Enabled reports whether every flag is on.
func (t *Toggle) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.flags) == 0 {
		return false
	}
	for _, on := range t.flags {
		if !on {
			return false
		}
	}
	return true
}

// SetEnabled flips every flag.
func (t *Toggle) SetEnabled(enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if enabled && !t.present {
		return errors.New("resource not present on this device")
	}
	for flag := range t.flags {
		t.flags[flag] = enabled
	}
	return nil
}

// Flag reports a single flag.
func (t *Toggle) Flag(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags[name]
}
