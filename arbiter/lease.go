package arbiter

import (
	"sync"
)

// A Lease is one acquisition of a shared resource. Release may be called any number of times;
// only the first call gives the usage back.
type Lease struct {
	key         Key
	releaseOnce sync.Once
	release     func(Key) error
}

// Lease acquires key and wraps the acquisition so it cannot be released twice.
func (a *Arbiter) Lease(key Key) (*Lease, error) {
	if err := a.acquire(key); err != nil {
		return nil, err
	}
	return &Lease{key: key, release: a.Release}, nil
}

// Key returns the leased resource.
func (l *Lease) Key() Key {
	return l.key
}

// Release gives the usage back to the arbiter.
func (l *Lease) Release() error {
	var err error
	l.releaseOnce.Do(func() {
		err = l.release(l.key)
	})
	return err
}
