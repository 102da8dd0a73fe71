package fake

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/sensorkit/arbiter"
	"go.viam.com/sensorkit/logging"
	"go.viam.com/sensorkit/property"
	"go.viam.com/sensorkit/registry"
	"go.viam.com/sensorkit/source"
)

// BatteryKind is the registered kind of the simulated battery.
var BatteryKind = registry.NewKind(Namespace, "battery")

// BatteryResource is the shared battery monitoring toggle. Enabling it also turns on battery
// state notifications.
const BatteryResource = arbiter.Key("battery-monitoring")

func init() {
	registry.Register(BatteryKind, registry.Registration[*Battery, *BatteryConfig]{
		Constructor: func(
			ctx context.Context,
			deps registry.Dependencies,
			conf registry.Config,
			logger logging.Logger,
		) (*Battery, error) {
			native, err := registry.NativeConfig[*BatteryConfig](conf)
			if err != nil {
				return nil, err
			}
			return NewBattery(deps, conf.Name, native, registry.ResourceKeys(conf), logger)
		},
		Resources: []arbiter.Key{BatteryResource},
	})
}

// BatteryState is the charging state of a battery.
type BatteryState int

// The battery states.
const (
	BatteryUnknown BatteryState = iota
	BatteryUnplugged
	BatteryCharging
	BatteryFull
)

func (s BatteryState) String() string {
	switch s {
	case BatteryUnplugged:
		return "unplugged"
	case BatteryCharging:
		return "charging"
	case BatteryFull:
		return "full"
	case BatteryUnknown:
	}
	return "unknown"
}

// A BatteryReading is one battery notification.
type BatteryReading struct {
	Level float64
	State BatteryState
}

// BatteryConfig is the native config of a simulated battery.
type BatteryConfig struct {
	// Missing simulates a device without a battery.
	Missing bool `json:"missing"`
}

// Validate ensures all parts of the config are valid.
func (cfg *BatteryConfig) Validate(path string) error {
	return nil
}

// Battery is a simulated battery whose readings are pushed by the caller. Its properties are
// "Level" followed by "State".
type Battery struct {
	*source.Controller[BatteryReading]
	level   *property.Property[float64]
	state   *property.Property[BatteryState]
	monitor *pushMonitor[BatteryReading]
}

// NewBattery returns an idle battery holding resources while monitoring.
func NewBattery(
	deps registry.Dependencies,
	name string,
	cfg *BatteryConfig,
	resources []arbiter.Key,
	logger logging.Logger,
) (*Battery, error) {
	if len(resources) > 0 && deps.Arbiter == nil {
		return nil, errors.New("battery needs an arbiter")
	}
	for _, key := range resources {
		deps.Arbiter.LoadOrRegister(key, NewToggle(!cfg.Missing, "battery_monitoring", "battery_notifications"))
	}

	id := property.NewID(Namespace, "battery", name)
	b := &Battery{
		level:   property.New[float64](id.Child("level"), "Level", property.Percent(), propertyOptions(deps)...),
		state:   property.New[BatteryState](id.Child("state"), "State", nil, propertyOptions(deps)...),
		monitor: &pushMonitor[BatteryReading]{},
	}
	controller, err := source.NewController(source.ControllerParams[BatteryReading]{
		ID:          id,
		DisplayName: "Battery " + name,
		Properties:  property.NewProperties(property.Erase(b.level, b.state)...),
		Monitor:     b.monitor,
		Apply: func(reading BatteryReading, at time.Time) {
			b.level.UpdateIfDifferent(reading.Level, at)
			b.state.UpdateIfDifferent(reading.State, at)
		},
		Resources: resources,
		Arbiter:   deps.Arbiter,
		Queue:     deps.Queue,
		Clock:     deps.Clock,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	b.Controller = controller
	return b, nil
}

// Level returns the typed "Level" property.
func (b *Battery) Level() *property.Property[float64] {
	return b.level
}

// ChargeState returns the typed "State" property.
func (b *Battery) ChargeState() *property.Property[BatteryState] {
	return b.state
}

// Simulate pushes a reading as the OS would. It reports false when the battery is not
// monitoring and nobody is listening.
func (b *Battery) Simulate(level float64, state BatteryState) bool {
	return b.monitor.push(source.Ok(BatteryReading{Level: level, State: state}))
}

// Fail pushes an OS error.
func (b *Battery) Fail(err error) bool {
	return b.monitor.push(source.Err[BatteryReading](err))
}
