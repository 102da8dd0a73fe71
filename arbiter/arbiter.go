// Package arbiter shares hardware toggles between independent consumers.
//
// Several sources may need the same physical flag (for example "proximity monitoring enabled")
// at once. The Arbiter keeps one usage count per resource key and flips the flag only on the
// 0->1 and 1->0 transitions, so one consumer stopping never breaks another that is still active.
// Each key has its own lock: the count and the flag change together, and unrelated keys never
// block each other.
package arbiter

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"

	"go.viam.com/sensorkit/logging"
)

// A Key names a physical resource, not the object that happens to control it.
type Key string

// A Toggle is the OS contract for one shared hardware flag. A Toggle may flip more than one OS
// setting; the Arbiter only cares that Enabled reports the combined state.
type Toggle interface {
	Enabled() bool
	SetEnabled(enabled bool) error
}

var (
	// ErrHardwareUnavailable is returned when the device refuses to enable a resource, usually
	// because it does not exist on this device.
	ErrHardwareUnavailable = errors.New("hardware resource unavailable")
	// ErrUnknownResource is returned for keys that were never registered.
	ErrUnknownResource = errors.New("unknown shared resource")
	// ErrAlreadyRegistered is returned when registering a key twice.
	ErrAlreadyRegistered = errors.New("shared resource already registered")
)

type entry struct {
	mu     sync.Mutex
	toggle Toggle
	// ref is non-nil exactly while count > 0. It holds the toggle on behalf of all users.
	ref   goutils.RefCountedValue
	count int
	// stuck is set when the last user left but the flag could not be disabled. The next
	// Acquire takes over the enabled flag and clears it.
	stuck bool

	enables  atomic.Uint64
	disables atomic.Uint64
}

// An Arbiter maps resource keys to usage counts. Construct one per process and hand it to
// every source that shares hardware.
type Arbiter struct {
	logger logging.Logger

	mu      sync.Mutex
	entries map[Key]*entry
}

// New returns an empty Arbiter.
func New(logger logging.Logger) *Arbiter {
	return &Arbiter{logger: logger, entries: map[Key]*entry{}}
}

// Register binds key to its toggle.
func (a *Arbiter) Register(key Key, toggle Toggle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.entries[key]; ok {
		return errors.Wrapf(ErrAlreadyRegistered, "%q", key)
	}
	a.entries[key] = &entry{toggle: toggle}
	return nil
}

// LoadOrRegister returns the toggle already bound to key, or binds and returns toggle.
func (a *Arbiter) LoadOrRegister(key Key, toggle Toggle) Toggle {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.entries[key]; ok {
		return e.toggle
	}
	a.entries[key] = &entry{toggle: toggle}
	return toggle
}

// Keys lists the registered keys in sorted order.
func (a *Arbiter) Keys() []Key {
	a.mu.Lock()
	keys := make([]Key, 0, len(a.entries))
	for k := range a.entries {
		keys = append(keys, k)
	}
	a.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (a *Arbiter) lookup(key Key) (*entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[key]
	return e, ok
}

// Acquire adds one user of key. On the first user it enables the hardware flag; if that fails
// the count is left unchanged and Acquire returns false.
func (a *Arbiter) Acquire(key Key) bool {
	if err := a.acquire(key); err != nil {
		a.logger.Debugw("failed to acquire shared resource", "key", key, "error", err)
		return false
	}
	return true
}

func (a *Arbiter) acquire(key Key) error {
	e, ok := a.lookup(key)
	if !ok {
		return errors.Wrapf(ErrUnknownResource, "%q", key)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.count > 0 {
		e.ref.Ref()
		e.count++
		return nil
	}

	if err := e.toggle.SetEnabled(true); err != nil {
		a.restoreDisabledLocked(key, e)
		e.stuck = e.toggle.Enabled()
		return errors.Wrapf(ErrHardwareUnavailable, "enabling %q: %v", key, err)
	}
	if !e.toggle.Enabled() {
		e.stuck = false
		return errors.Wrapf(ErrHardwareUnavailable, "%q did not enable", key)
	}
	if e.stuck {
		a.logger.Debugw("reclaimed shared resource left enabled", "key", key)
		e.stuck = false
	}
	e.enables.Inc()
	e.ref = goutils.NewRefCountedValue(e.toggle)
	e.ref.Ref()
	e.count = 1
	a.logger.Debugw("enabled shared resource", "key", key)
	return nil
}

// restoreDisabledLocked puts a flag that failed half way back into its disabled state.
func (a *Arbiter) restoreDisabledLocked(key Key, e *entry) {
	if !e.toggle.Enabled() {
		return
	}
	if err := e.toggle.SetEnabled(false); err != nil {
		a.logger.Warnw("failed to disable shared resource after failed enable", "key", key, "error", err)
	}
}

// Release removes one user of key. The last user disables the hardware flag. Releasing a key
// nobody holds is a no-op.
//
// The key's entry is kept when the count reaches zero because it also holds the toggle
// registration; only the count and the reference are reset. If disabling fails the count still
// drops to zero, the flag stays on and Stuck reports true until the next Acquire takes the flag
// over.
func (a *Arbiter) Release(key Key) error {
	e, ok := a.lookup(key)
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.count == 0 {
		return nil
	}
	e.count--
	if !e.ref.Deref() {
		return nil
	}

	// The entry's bookkeeping and the flag go away under the same lock.
	e.ref = nil
	e.count = 0
	e.disables.Inc()
	if err := e.toggle.SetEnabled(false); err != nil {
		e.stuck = e.toggle.Enabled()
		a.logger.Warnw("failed to disable shared resource", "key", key, "error", err)
		return errors.Wrapf(err, "disabling %q", key)
	}
	a.logger.Debugw("disabled shared resource", "key", key)
	return nil
}

// Count returns the number of outstanding users of key.
func (a *Arbiter) Count(key Key) int {
	e, ok := a.lookup(key)
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// Enabled reports the hardware flag of key as the toggle sees it.
func (a *Arbiter) Enabled(key Key) bool {
	e, ok := a.lookup(key)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.toggle.Enabled()
}

// Stuck reports whether key has no users but its flag was left enabled by a failed disable.
func (a *Arbiter) Stuck(key Key) bool {
	e, ok := a.lookup(key)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stuck
}

// Transitions returns how many times key was physically enabled and disabled.
func (a *Arbiter) Transitions(key Key) (enables, disables uint64) {
	e, ok := a.lookup(key)
	if !ok {
		return 0, 0
	}
	return e.enables.Load(), e.disables.Load()
}
