// Package property implements typed, snapshot based measurements and their type-erased views.
//
// A Property holds exactly one current Snapshot. Only the owning source writes to it; any
// goroutine may read it or subscribe to its updates. Notifications for one property are delivered
// on a single dispatch.Queue in the order the snapshots were produced.
package property

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/sensorkit/dispatch"
	"go.viam.com/sensorkit/notify"
)

// Property is the owning, mutable holder of the current Snapshot for one named measurement.
type Property[V any] struct {
	id          ID
	displayName string
	formatter   Formatter[V]
	equal       func(a, b V) bool
	clock       clock.Clock

	// writeMu serializes producers so that storing a snapshot and handing it to the subject
	// happen as one step; delivery order therefore matches production order.
	writeMu sync.Mutex

	mu       sync.RWMutex
	current  Snapshot[V]
	observed bool

	subject *notify.Subject[Snapshot[V]]
}

type options struct {
	queue   dispatch.Queue
	clock   clock.Clock
	equal   any
	initial any
	initAt  time.Time
}

// An Option configures a Property at construction.
type Option func(*options)

// WithQueue sets the queue notifications are delivered on. Sources usually share one queue
// across all of their properties and events.
func WithQueue(queue dispatch.Queue) Option {
	return func(o *options) { o.queue = queue }
}

// WithClock sets the clock used by UpdateNow.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithEqual replaces the structural equality used by UpdateIfDifferent. The function's type must
// match the property's value type.
func WithEqual[V any](equal func(a, b V) bool) Option {
	return func(o *options) { o.equal = equal }
}

// WithInitial seeds the property with an observed value, for sources whose value is known at
// construction.
func WithInitial[V any](value V, at time.Time) Option {
	return func(o *options) {
		o.initial = value
		o.initAt = at
	}
}

// New returns an unobserved property.
func New[V any](id ID, displayName string, formatter Formatter[V], opts ...Option) *Property[V] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if formatter == nil {
		formatter = Default[V]()
	}
	if o.clock == nil {
		o.clock = clock.New()
	}

	p := &Property[V]{
		id:          id,
		displayName: displayName,
		formatter:   formatter,
		equal:       valuesEqual[V],
		clock:       o.clock,
		subject:     notify.NewSubject[Snapshot[V]](o.queue),
	}
	if o.equal != nil {
		equal, ok := o.equal.(func(a, b V) bool)
		if !ok {
			panic(errors.Errorf("equality function %T does not compare %v values", o.equal, typeOf[V]()))
		}
		p.equal = equal
	}
	if o.initial != nil {
		initial, ok := o.initial.(V)
		if !ok {
			panic(NewUnsupportedTypeError[V](o.initial))
		}
		p.current = Snapshot[V]{Value: initial, CapturedAt: o.initAt}
		p.observed = true
	}
	return p
}

// ID returns the property's address.
func (p *Property[V]) ID() ID {
	return p.id
}

// DisplayName returns the human readable name of the property.
func (p *Property[V]) DisplayName() string {
	return p.displayName
}

// Formatter returns the property's formatter.
func (p *Property[V]) Formatter() Formatter[V] {
	return p.formatter
}

// Snapshot returns the current snapshot and false if the property was never observed.
func (p *Property[V]) Snapshot() (Snapshot[V], bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.observed
}

// Value returns the current value and false if the property was never observed.
func (p *Property[V]) Value() (V, bool) {
	snapshot, ok := p.Snapshot()
	return snapshot.Value, ok
}

// Formatted renders the current value with the property's formatter.
func (p *Property[V]) Formatted() (string, error) {
	snapshot, ok := p.Snapshot()
	if !ok {
		return "", ErrNotObserved
	}
	return p.formatter.Format(snapshot.Value)
}

// Update replaces the snapshot, notifies listeners and returns the new snapshot.
func (p *Property[V]) Update(value V, at time.Time) Snapshot[V] {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.storeAndNotifyLocked(value, at)
}

// UpdateNow is Update stamped with the property's clock.
func (p *Property[V]) UpdateNow(value V) Snapshot[V] {
	return p.Update(value, p.clock.Now())
}

// UpdateIfDifferent updates only when value differs from the current value, or when the property
// was never observed. It reports whether an update (and notification) happened.
func (p *Property[V]) UpdateIfDifferent(value V, at time.Time) (Snapshot[V], bool) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	current, observed := p.Snapshot()
	if observed && p.equal(current.Value, value) {
		return current, false
	}
	return p.storeAndNotifyLocked(value, at), true
}

func (p *Property[V]) storeAndNotifyLocked(value V, at time.Time) Snapshot[V] {
	snapshot := Snapshot[V]{Value: value, CapturedAt: at}

	p.mu.Lock()
	p.current = snapshot
	p.observed = true
	p.mu.Unlock()

	// A closed queue only happens during teardown; the snapshot is stored regardless.
	//nolint:errcheck
	p.subject.Notify(snapshot)
	return snapshot
}

// Subscribe registers listener for every subsequent update.
func (p *Property[V]) Subscribe(listener func(Snapshot[V])) *notify.Token {
	return p.subject.Subscribe(listener)
}

// Erase returns the type-erased view of the property.
func (p *Property[V]) Erase() AnyProperty {
	return &box[V]{p}
}
