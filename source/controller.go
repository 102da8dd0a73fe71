package source

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/sensorkit/arbiter"
	"go.viam.com/sensorkit/dispatch"
	"go.viam.com/sensorkit/logging"
	"go.viam.com/sensorkit/notify"
	"go.viam.com/sensorkit/property"
	"go.viam.com/sensorkit/utils"
)

// State is the lifecycle state of a Controller.
type State int

// The controller states.
const (
	Idle State = iota
	AwaitingPermission
	Monitoring
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingPermission:
		return "awaiting_permission"
	case Monitoring:
		return "monitoring"
	default:
		return "unknown"
	}
}

// ControllerParams contains the parameters needed to construct a Controller.
type ControllerParams[R any] struct {
	ID          property.ID
	DisplayName string
	Properties  property.Provider

	Monitor Monitor[R]
	// Apply writes one reading into the source's properties. Calls never overlap and run without
	// the controller lock held, so property listeners may call back into the controller. A
	// reading delivered after StopUpdating returned is never applied; one already being applied
	// when it is called may finish.
	Apply func(reading R, at time.Time)

	// Authority gates starting. A nil Authority means always available.
	Authority PermissionAuthority
	// Resources are the shared hardware toggles held while monitoring.
	Resources []arbiter.Key
	Arbiter   *arbiter.Arbiter

	// Queue delivers events. A nil Queue gets a serial queue owned by the controller.
	Queue  dispatch.Queue
	Clock  clock.Clock
	Logger logging.Logger
}

// Validate ensures all parts of the params are valid.
func (p *ControllerParams[R]) Validate() error {
	if err := p.ID.Validate(); err != nil {
		return err
	}
	if p.Monitor == nil {
		return errors.New("missing monitor")
	}
	if p.Apply == nil {
		return errors.New("missing apply function")
	}
	if len(p.Resources) > 0 && p.Arbiter == nil {
		return errors.Errorf("%d shared resources but no arbiter", len(p.Resources))
	}
	if p.Logger == nil {
		return errors.New("missing logger")
	}
	return nil
}

// A Controller drives the idle, awaiting permission and monitoring states of a source. It
// implements Controllable on behalf of a concrete source, which supplies the OS hooks through
// ControllerParams.
type Controller[R any] struct {
	id          property.ID
	displayName string
	props       property.Provider
	monitor     Monitor[R]
	apply       func(R, time.Time)
	authority   PermissionAuthority
	resources   []arbiter.Key
	arbiter     *arbiter.Arbiter
	clock       clock.Clock
	logger      logging.Logger

	ownedQueue *dispatch.SerialQueue
	events     *notify.Subject[Event]

	// applyMu serializes Apply calls so readings land in delivery order.
	applyMu sync.Mutex

	mu    sync.Mutex
	state State
	// session changes on every transition out of a state. Callbacks remember the session they
	// were registered in and are dropped once it is gone.
	session      uint64
	stop         func()
	leases       []*arbiter.Lease
	availability Availability
	closed       bool

	// pending holds events emitted under mu; they are published after mu is released so
	// listeners running inline can call back into the controller.
	pending    []Event
	publishing bool
}

// NewController returns an idle controller.
func NewController[R any](params ControllerParams[R]) (*Controller[R], error) {
	if err := params.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid controller params for %s", params.ID)
	}
	c := &Controller[R]{
		id:          params.ID,
		displayName: params.DisplayName,
		props:       params.Properties,
		monitor:     params.Monitor,
		apply:       params.Apply,
		authority:   params.Authority,
		resources:   params.Resources,
		arbiter:     params.Arbiter,
		clock:       params.Clock,
		logger:      params.Logger,
	}
	if c.props == nil {
		c.props = property.NewProperties()
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	queue := params.Queue
	if queue == nil {
		c.ownedQueue = dispatch.NewSerialQueue(c.logger.Sublogger("events"))
		queue = c.ownedQueue
	}
	c.events = notify.NewSubject[Event](queue)
	c.availability = c.currentAvailability()
	return c, nil
}

// ID returns the source's address.
func (c *Controller[R]) ID() property.ID {
	return c.id
}

// DisplayName returns the source's human readable name.
func (c *Controller[R]) DisplayName() string {
	return c.displayName
}

// AllProperties returns the source's properties in their documented order.
func (c *Controller[R]) AllProperties() []property.AnyProperty {
	return c.props.AllProperties()
}

// Availability queries the permission authority.
func (c *Controller[R]) Availability() Availability {
	return c.currentAvailability()
}

func (c *Controller[R]) currentAvailability() Availability {
	if c.authority == nil {
		return Available
	}
	return c.authority.Status()
}

// State returns the current lifecycle state.
func (c *Controller[R]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsUpdating reports whether the controller is monitoring.
func (c *Controller[R]) IsUpdating() bool {
	return c.State() == Monitoring
}

// SubscribeEvents registers listener for lifecycle events.
func (c *Controller[R]) SubscribeEvents(listener func(Event)) *notify.Token {
	return c.events.Subscribe(listener)
}

// Sync waits for queued events to be delivered when the controller owns its queue.
func (c *Controller[R]) Sync(ctx context.Context) error {
	if c.ownedQueue == nil {
		return nil
	}
	return c.ownedQueue.Sync(ctx)
}

// StartUpdating starts monitoring if the source is available, or asks for permission first when
// a prompt is required. A failure is both returned and published as a StoppedUpdating event.
func (c *Controller[R]) StartUpdating() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != Idle {
		c.mu.Unlock()
		return nil
	}

	availability := c.currentAvailability()
	c.noteAvailabilityLocked(availability)

	if availability == RequiresPermissionsPrompt && c.authority != nil {
		c.session++
		session := c.session
		c.state = AwaitingPermission
		c.logger.Debugw("requesting permission", "source", c.id)
		c.emitLocked(Event{Kind: RequestingPermission})
		c.unlockAndPublish()

		c.authority.Request(func(granted Availability) {
			c.onPermission(session, granted)
		})
		return nil
	}
	defer c.unlockAndPublish()

	if err := availability.Err(); err != nil {
		c.emitLocked(Event{Kind: StoppedUpdating, Err: err})
		return err
	}
	return c.beginMonitoringLocked()
}

func (c *Controller[R]) onPermission(session uint64, granted Availability) {
	c.mu.Lock()
	defer c.unlockAndPublish()

	if session != c.session || c.state != AwaitingPermission {
		c.logger.Debugw("discarding stale permission result", "source", c.id, "availability", granted)
		return
	}
	c.session++
	c.state = Idle
	c.noteAvailabilityLocked(granted)

	if granted != Available {
		err := ErrPermissionDenied
		switch granted {
		case Restricted, Unavailable:
			err = granted.Err()
		case Available, PermissionDenied, RequiresPermissionsPrompt:
		}
		c.logger.Debugw("permission not granted", "source", c.id, "availability", granted)
		c.emitLocked(Event{Kind: StoppedUpdating, Err: err})
		return
	}
	//nolint:errcheck
	c.beginMonitoringLocked()
}

// beginMonitoringLocked acquires the shared resources and registers with the monitor. On any
// failure everything acquired so far is given back and the controller stays idle.
func (c *Controller[R]) beginMonitoringLocked() (err error) {
	var leases []*arbiter.Lease
	guard := utils.NewGuard(func() {
		if releaseErr := releaseAll(leases); releaseErr != nil {
			c.logger.Warnw("failed to release shared resources after failed start", "source", c.id, "error", releaseErr)
		}
		c.emitLocked(Event{Kind: StoppedUpdating, Err: err})
	})
	defer guard.OnFail()

	for _, key := range c.resources {
		lease, leaseErr := c.arbiter.Lease(key)
		if leaseErr != nil {
			return NewOtherError(leaseErr)
		}
		leases = append(leases, lease)
	}

	c.session++
	session := c.session
	stop, startErr := c.monitor.Start(func(result Result[R]) {
		c.onResult(session, result)
	})
	if startErr != nil {
		return NewOtherError(startErr)
	}
	guard.Success()

	c.state = Monitoring
	c.stop = stop
	c.leases = leases
	c.logger.Debugw("started updating", "source", c.id)
	c.emitLocked(Event{Kind: StartedUpdating})
	return nil
}

func (c *Controller[R]) onResult(session uint64, result Result[R]) {
	reading, err := result.Get()
	if err == nil {
		c.applyReading(session, reading)
		return
	}

	c.mu.Lock()
	if session != c.session || c.state != Monitoring {
		c.mu.Unlock()
		c.logger.Debugw("discarding late error", "source", c.id, "error", err)
		return
	}
	err = NewOtherError(err)
	c.logger.Debugw("monitoring failed", "source", c.id, "error", err)
	teardown := c.toIdleLocked(err)
	c.unlockAndPublish()
	if teardownErr := teardown(); teardownErr != nil {
		c.logger.Warnw("failed to release shared resources", "source", c.id, "error", teardownErr)
	}
}

func (c *Controller[R]) applyReading(session uint64, reading R) {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	c.mu.Lock()
	live := session == c.session && c.state == Monitoring
	now := c.clock.Now()
	c.mu.Unlock()
	if !live {
		c.logger.Debugw("discarding late reading", "source", c.id)
		return
	}
	c.apply(reading, now)
}

// toIdleLocked moves to idle and publishes StoppedUpdating with reason. The returned function
// unregisters from the monitor and releases shared resources; it must run without the lock held.
func (c *Controller[R]) toIdleLocked(reason error) func() error {
	if c.state == Idle {
		return func() error { return nil }
	}
	c.session++
	c.state = Idle
	stop, leases := c.stop, c.leases
	c.stop, c.leases = nil, nil
	c.emitLocked(Event{Kind: StoppedUpdating, Err: reason})

	return func() error {
		if stop != nil {
			stop()
		}
		return releaseAll(leases)
	}
}

// StopUpdating returns to idle. Readings that arrive afterwards are discarded. It may be called
// from an event or property listener.
func (c *Controller[R]) StopUpdating() {
	if err := c.stopUpdating(); err != nil {
		c.logger.Warnw("failed to release shared resources", "source", c.id, "error", err)
	}
}

func (c *Controller[R]) stopUpdating() error {
	c.mu.Lock()
	if c.state != Idle {
		c.logger.Debugw("stopping updates", "source", c.id)
	}
	teardown := c.toIdleLocked(nil)
	c.unlockAndPublish()
	return teardown()
}

// RefreshAvailability re-queries the permission authority and publishes AvailabilityUpdated if
// it changed. A source that loses permission while monitoring is forced to idle.
func (c *Controller[R]) RefreshAvailability() Availability {
	availability := c.currentAvailability()

	c.mu.Lock()
	c.noteAvailabilityLocked(availability)
	teardown := func() error { return nil }
	if c.state == Monitoring && (availability == PermissionDenied || availability == Restricted) {
		teardown = c.toIdleLocked(availability.Err())
	}
	c.unlockAndPublish()

	if err := teardown(); err != nil {
		c.logger.Warnw("failed to release shared resources", "source", c.id, "error", err)
	}
	return availability
}

func (c *Controller[R]) noteAvailabilityLocked(availability Availability) {
	if availability == c.availability {
		return
	}
	c.availability = availability
	c.emitLocked(Event{Kind: AvailabilityUpdated, Availability: availability})
}

func (c *Controller[R]) emitLocked(event Event) {
	event.At = c.clock.Now()
	c.pending = append(c.pending, event)
}

// unlockAndPublish releases mu and hands pending events to the event queue in emission order.
// Events emitted by a listener while this runs are published by the same loop.
func (c *Controller[R]) unlockAndPublish() {
	if c.publishing {
		c.mu.Unlock()
		return
	}
	c.publishing = true
	for len(c.pending) > 0 {
		event := c.pending[0]
		c.pending = c.pending[1:]
		c.mu.Unlock()
		err := c.publish(event)
		c.mu.Lock()
		if err != nil {
			c.logger.Debugw("dropped event", "source", c.id, "event", event, "error", err)
		}
	}
	c.publishing = false
	c.mu.Unlock()
}

// publish notifies listeners. If an inline listener panics, publishing is handed back before
// the panic continues so later events are not stranded.
func (c *Controller[R]) publish(event Event) error {
	defer func() {
		if r := recover(); r != nil {
			c.mu.Lock()
			c.publishing = false
			c.mu.Unlock()
			panic(r)
		}
	}()
	return c.events.Notify(event)
}

// Close stops updating, waits for pending events and releases the controller's queue. The
// controller cannot be started again.
func (c *Controller[R]) Close(ctx context.Context) error {
	c.mu.Lock()
	alreadyClosed := c.closed
	c.closed = true
	c.mu.Unlock()
	if alreadyClosed {
		return nil
	}

	err := c.stopUpdating()
	if c.ownedQueue != nil {
		err = multierr.Combine(err, c.ownedQueue.Sync(ctx))
		c.ownedQueue.Close()
	}
	return err
}

func releaseAll(leases []*arbiter.Lease) error {
	var err error
	for _, lease := range leases {
		err = multierr.Combine(err, lease.Release())
	}
	return err
}
