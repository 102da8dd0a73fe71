// Package system builds and runs every source described by a config.
package system

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/sensorkit/arbiter"
	"go.viam.com/sensorkit/config"
	"go.viam.com/sensorkit/dispatch"
	"go.viam.com/sensorkit/logging"
	"go.viam.com/sensorkit/notify"
	"go.viam.com/sensorkit/property"
	"go.viam.com/sensorkit/registry"
	"go.viam.com/sensorkit/source"
	"go.viam.com/sensorkit/utils"
)

// A System owns the arbiter, the delivery queue and the sources built from a config.
type System struct {
	logger  logging.Logger
	arbiter *arbiter.Arbiter
	queue   dispatch.Queue
	serial  *dispatch.SerialQueue
	sources []registry.Source

	aggregators []*source.Aggregator
	tokens      notify.Bag
}

// New builds every configured source. If any fails, nothing is left running.
func New(ctx context.Context, cfg *config.Config, clk clock.Clock, logger logging.Logger) (*System, error) {
	if clk == nil {
		clk = clock.New()
	}
	s := &System{
		logger:  logger,
		arbiter: arbiter.New(logger.Sublogger("arbiter")),
	}
	switch cfg.DeliveryMode() {
	case config.DeliveryInline:
		s.queue = dispatch.NewInline()
	case config.DeliverySerial:
		s.serial = dispatch.NewSerialQueue(logger.Sublogger("delivery"))
		s.queue = s.serial
	default:
		return nil, errors.Errorf("unknown delivery mode %q", cfg.DeliveryMode())
	}
	guard := utils.NewGuard(func() {
		if s.serial != nil {
			s.serial.Close()
		}
	})
	defer guard.OnFail()

	deps := registry.Dependencies{Arbiter: s.arbiter, Queue: s.queue, Clock: clk}
	sources, err := registry.NewSources(ctx, deps, cfg.Sources, logger.Sublogger("sources"))
	if err != nil {
		return nil, err
	}
	s.sources = sources
	guard.Success()
	return s, nil
}

// Arbiter returns the arbiter shared by all sources.
func (s *System) Arbiter() *arbiter.Arbiter {
	return s.arbiter
}

// Sources returns the sources in config order.
func (s *System) Sources() []registry.Source {
	return append([]registry.Source(nil), s.sources...)
}

// Source returns the source with the given id.
func (s *System) Source(id property.ID) (registry.Source, bool) {
	for _, src := range s.sources {
		if src.ID().Equal(id) {
			return src, true
		}
	}
	return nil, false
}

// Controllables returns the sources that can be started.
func (s *System) Controllables() []source.Controllable {
	var out []source.Controllable
	for _, src := range s.sources {
		if c, ok := src.(source.Controllable); ok {
			out = append(out, c)
		}
	}
	return out
}

// StartAll starts every controllable source concurrently. Sources that fail stay idle; their
// errors are combined.
func (s *System) StartAll(ctx context.Context) error {
	controllables := s.Controllables()
	errs := make([]error, len(controllables))
	var group errgroup.Group
	for i, c := range controllables {
		i, c := i, c
		group.Go(func() error {
			if err := c.StartUpdating(); err != nil {
				errs[i] = errors.Wrapf(err, "starting %s", c.ID())
			}
			return ctx.Err()
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return multierr.Combine(errs...)
}

// StopAll stops every controllable source.
func (s *System) StopAll() {
	for _, c := range s.Controllables() {
		c.StopUpdating()
	}
}

// Watch reports every property update and lifecycle event of every source to the listeners.
// Either listener may be nil.
func (s *System) Watch(onUpdate func(registry.Source, source.PropertiesUpdate), onEvent func(registry.Source, source.Event)) {
	for _, src := range s.sources {
		if onUpdate != nil {
			agg := source.Aggregate(src)
			s.aggregators = append(s.aggregators, agg)
			s.tokens.Add(agg.Subscribe(func(update source.PropertiesUpdate) { onUpdate(src, update) }))
		}
		if c, ok := src.(source.Controllable); ok && onEvent != nil {
			s.tokens.Add(c.SubscribeEvents(func(event source.Event) { onEvent(src, event) }))
		}
	}
}

// Sync waits for pending notifications when delivery is serial.
func (s *System) Sync(ctx context.Context) error {
	if s.serial == nil {
		return nil
	}
	return s.serial.Sync(ctx)
}

// Close closes every source in reverse order, then the delivery queue.
func (s *System) Close(ctx context.Context) error {
	s.tokens.Clear()
	for _, agg := range s.aggregators {
		agg.Close()
	}
	s.aggregators = nil

	err := utils.CloseAll(ctx, s.sources)
	s.sources = nil
	if s.serial != nil {
		err = multierr.Combine(err, s.serial.Sync(ctx))
		s.serial.Close()
	}
	return err
}
