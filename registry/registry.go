// Package registry maps source kinds to their constructors and builds sources from config.
package registry

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/sensorkit/arbiter"
	"go.viam.com/sensorkit/dispatch"
	"go.viam.com/sensorkit/logging"
	"go.viam.com/sensorkit/source"
	"go.viam.com/sensorkit/utils"
)

// A Source is anything a registration can build. Built sources are closed by their owner.
type Source interface {
	source.Source
	utils.Closer
}

// Dependencies are the process wide services handed to every constructor.
type Dependencies struct {
	Arbiter *arbiter.Arbiter
	// Queue delivers property updates and events. Sources share it so that consumers see one
	// consistent delivery context.
	Queue dispatch.Queue
	Clock clock.Clock
}

type (
	// A Create creates a source from its dependencies and a validated config.
	Create[S Source] func(ctx context.Context, deps Dependencies, conf Config, logger logging.Logger) (S, error)

	// An AttributeMapConverter converts an attribute map into a kind's native config.
	AttributeMapConverter[C any] func(attributes utils.AttributeMap) (C, error)
)

// A Registration stores construction info for a kind. A constructor is mandatory.
type Registration[S Source, C ConfigValidator] struct {
	Constructor Create[S]

	// AttributeMapConverter converts raw attributes to the kind's native config. When nil,
	// TransformAttributeMap is used.
	AttributeMapConverter AttributeMapConverter[C]

	// Resources are the shared hardware toggles the kind holds while monitoring, unless a
	// config overrides them.
	Resources []arbiter.Key

	configType reflect.Type
}

// ConfigReflectType returns the native config type of the kind.
func (r Registration[S, C]) ConfigReflectType() reflect.Type {
	return r.configType
}

var (
	registryMu sync.RWMutex
	registry   = map[Kind]Registration[Source, ConfigValidator]{}
)

// Register registers a kind and its construction info. Registering a kind twice panics.
func Register[S Source, C ConfigValidator](kind Kind, reg Registration[S, C]) {
	if err := kind.Validate(); err != nil {
		panic(err)
	}
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, old := registry[kind]; old {
		panic(errors.Errorf("trying to register two sources with same kind: %q", kind))
	}
	if reg.Constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for kind: %q", kind))
	}
	var zero C
	reg.configType = reflect.TypeOf(zero)
	if reg.AttributeMapConverter == nil {
		reg.AttributeMapConverter = TransformAttributeMap[C]
	}
	registry[kind] = makeGenericRegistration(reg)
}

// makeGenericRegistration erases the registration's type parameters.
func makeGenericRegistration[S Source, C ConfigValidator](typed Registration[S, C]) Registration[Source, ConfigValidator] {
	return Registration[Source, ConfigValidator]{
		Constructor: func(ctx context.Context, deps Dependencies, conf Config, logger logging.Logger) (Source, error) {
			return typed.Constructor(ctx, deps, conf, logger)
		},
		AttributeMapConverter: func(attributes utils.AttributeMap) (ConfigValidator, error) {
			return typed.AttributeMapConverter(attributes)
		},
		Resources:  typed.Resources,
		configType: typed.configType,
	}
}

// Deregister removes a previously registered kind.
func Deregister(kind Kind) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, kind)
}

// Lookup returns the registration for kind.
func Lookup(kind Kind) (Registration[Source, ConfigValidator], bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[kind]
	return reg, ok
}

// Kinds lists the registered kinds in sorted order.
func Kinds() []Kind {
	registryMu.RLock()
	kinds := lo.Keys(registry)
	registryMu.RUnlock()
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// ResourceKeys returns the shared hardware toggles conf's source holds: the config's own list if
// it has one, the kind's defaults otherwise.
func ResourceKeys(conf Config) []arbiter.Key {
	if len(conf.Resources) > 0 {
		return lo.Map(conf.Resources, func(key string, _ int) arbiter.Key { return arbiter.Key(key) })
	}
	reg, ok := Lookup(conf.Kind)
	if !ok {
		return nil
	}
	return append([]arbiter.Key(nil), reg.Resources...)
}

// NewSource converts and validates conf and builds its source. logger is the parent of the
// source's own logger, which is named after the source ID.
func NewSource(ctx context.Context, deps Dependencies, conf Config, logger logging.Logger) (Source, error) {
	reg, ok := Lookup(conf.Kind)
	if !ok {
		return nil, errors.Errorf("unknown source kind %q", conf.Kind)
	}
	if conf.ConvertedAttributes == nil {
		converted, err := reg.AttributeMapConverter(conf.Attributes)
		if err != nil {
			return nil, errors.Wrapf(err, "error converting attributes for %s", conf.ID())
		}
		conf.ConvertedAttributes = converted
	}
	if err := conf.Validate(conf.ID().String()); err != nil {
		return nil, err
	}
	logger.CDebugw(ctx, "building source", "id", conf.ID(), "resources", ResourceKeys(conf))
	return reg.Constructor(ctx, deps, conf, logger.Sublogger(conf.ID().String()))
}

// NewSources builds every config in order. If any fails, the sources built so far are closed
// and the combined error is returned.
func NewSources(ctx context.Context, deps Dependencies, confs []Config, logger logging.Logger) (built []Source, err error) {
	guard := utils.NewGuard(func() {
		err = errors.Wrap(
			multierr.Combine(err, utils.CloseAll(ctx, built)),
			"failed to build sources",
		)
		built = nil
	})
	defer guard.OnFail()

	seen := map[string]struct{}{}
	for _, conf := range confs {
		id := conf.ID().String()
		if _, dup := seen[id]; dup {
			return built, errors.Errorf("duplicate source %s", id)
		}
		seen[id] = struct{}{}

		src, buildErr := NewSource(ctx, deps, conf, logger)
		if buildErr != nil {
			return built, buildErr
		}
		built = append(built, src)
	}
	guard.Success()
	return built, nil
}
