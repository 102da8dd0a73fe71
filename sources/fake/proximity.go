package fake

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/sensorkit/arbiter"
	"go.viam.com/sensorkit/logging"
	"go.viam.com/sensorkit/property"
	"go.viam.com/sensorkit/registry"
	"go.viam.com/sensorkit/source"
)

// ProximityKind is the registered kind of the simulated proximity sensor.
var ProximityKind = registry.NewKind(Namespace, "proximity")

// ProximityResource is the shared toggle every proximity sensor on a device uses.
const ProximityResource = arbiter.Key("proximity")

const defaultInterval = 100 * time.Millisecond

func init() {
	registry.Register(ProximityKind, registry.Registration[*Proximity, *ProximityConfig]{
		Constructor: func(
			ctx context.Context,
			deps registry.Dependencies,
			conf registry.Config,
			logger logging.Logger,
		) (*Proximity, error) {
			native, err := registry.NativeConfig[*ProximityConfig](conf)
			if err != nil {
				return nil, err
			}
			return NewProximity(deps, conf.Name, native, registry.ResourceKeys(conf), logger)
		},
		Resources: []arbiter.Key{ProximityResource},
	})
}

// ProximityConfig is the native config of a simulated proximity sensor.
type ProximityConfig struct {
	// Interval between readings; defaults to 100ms.
	Interval time.Duration `json:"interval"`
	// Readings are replayed in a loop. An empty list alternates far and near.
	Readings []bool `json:"readings"`
	// Availability is the initial permission state; empty means no permission is needed.
	Availability string `json:"availability"`
	// Grant is the user's answer to a permission prompt.
	Grant bool `json:"grant"`
	// Missing simulates a device without the sensor.
	Missing bool `json:"missing"`
}

// Validate ensures all parts of the config are valid.
func (cfg *ProximityConfig) Validate(path string) error {
	if cfg.Interval < 0 {
		return errors.Errorf("%s: interval must not be negative", path)
	}
	if cfg.Availability != "" {
		var a source.Availability
		if err := a.UnmarshalText([]byte(cfg.Availability)); err != nil {
			return errors.Wrap(err, path)
		}
	}
	return nil
}

// Proximity is a simulated proximity sensor. Its only property is "Near".
type Proximity struct {
	*source.Controller[bool]
	near *property.Property[bool]
}

// NewProximity returns an idle proximity sensor holding resources while monitoring.
func NewProximity(
	deps registry.Dependencies,
	name string,
	cfg *ProximityConfig,
	resources []arbiter.Key,
	logger logging.Logger,
) (*Proximity, error) {
	if len(resources) > 0 && deps.Arbiter == nil {
		return nil, errors.New("proximity sensor needs an arbiter")
	}
	for _, key := range resources {
		deps.Arbiter.LoadOrRegister(key, NewToggle(!cfg.Missing, "proximity_monitoring"))
	}

	id := property.NewID(Namespace, "proximity", name)
	near := property.New[bool](id.Child("near"), "Near", property.Bool("near", "far"), propertyOptions(deps)...)

	readings := cfg.Readings
	if len(readings) == 0 {
		readings = []bool{false, true}
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultInterval
	}
	var (
		mu   sync.Mutex
		next int
	)
	monitor := tickingMonitor(clockOrDefault(deps), interval, func() source.Result[bool] {
		mu.Lock()
		defer mu.Unlock()
		reading := readings[next%len(readings)]
		next++
		return source.Ok(reading)
	})

	var authority source.PermissionAuthority
	if cfg.Availability != "" {
		var initial source.Availability
		if err := initial.UnmarshalText([]byte(cfg.Availability)); err != nil {
			return nil, err
		}
		answer := source.PermissionDenied
		if cfg.Grant {
			answer = source.Available
		}
		authority = NewAuthority(initial, answer)
	}

	controller, err := source.NewController(source.ControllerParams[bool]{
		ID:          id,
		DisplayName: "Proximity " + name,
		Properties:  property.NewProperties(near.Erase()),
		Monitor:     monitor,
		Apply: func(reading bool, at time.Time) {
			near.UpdateIfDifferent(reading, at)
		},
		Authority: authority,
		Resources: resources,
		Arbiter:   deps.Arbiter,
		Queue:     deps.Queue,
		Clock:     deps.Clock,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return &Proximity{Controller: controller, near: near}, nil
}

// Near returns the typed "Near" property.
func (p *Proximity) Near() *property.Property[bool] {
	return p.near
}
