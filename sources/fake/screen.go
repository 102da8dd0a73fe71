package fake

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/sensorkit/logging"
	"go.viam.com/sensorkit/property"
	"go.viam.com/sensorkit/registry"
	"go.viam.com/sensorkit/source"
)

// ScreenKind is the registered kind of the simulated screen.
var ScreenKind = registry.NewKind(Namespace, "screen")

func init() {
	registry.Register(ScreenKind, registry.Registration[*Screen, *ScreenConfig]{
		Constructor: func(
			ctx context.Context,
			deps registry.Dependencies,
			conf registry.Config,
			logger logging.Logger,
		) (*Screen, error) {
			native, err := registry.NativeConfig[*ScreenConfig](conf)
			if err != nil {
				return nil, err
			}
			return NewScreen(deps, conf.Name, native, logger)
		},
	})
}

// ScreenConfig is the native config of a simulated screen.
type ScreenConfig struct {
	// Interval between brightness polls; defaults to 100ms.
	Interval time.Duration `json:"interval"`
	// Brightness is the initial brightness, 0 to 1.
	Brightness float64 `json:"brightness"`
}

// Validate ensures all parts of the config are valid.
func (cfg *ScreenConfig) Validate(path string) error {
	if cfg.Interval < 0 {
		return errors.Errorf("%s: interval must not be negative", path)
	}
	if cfg.Brightness < 0 || cfg.Brightness > 1 {
		return errors.Errorf("%s: brightness %v out of range [0, 1]", path, cfg.Brightness)
	}
	return nil
}

// Screen is a polled screen. Its only property is "Brightness".
type Screen struct {
	*source.Controller[float64]
	brightness *property.Property[float64]
	level      *atomic.Float64
	interval   time.Duration
}

// NewScreen returns an idle screen.
func NewScreen(deps registry.Dependencies, name string, cfg *ScreenConfig, logger logging.Logger) (*Screen, error) {
	id := property.NewID(Namespace, "screen", name)
	s := &Screen{
		brightness: property.New[float64](id.Child("brightness"), "Brightness", property.Percent(), propertyOptions(deps)...),
		level:      atomic.NewFloat64(cfg.Brightness),
		interval:   cfg.Interval,
	}
	if s.interval == 0 {
		s.interval = defaultInterval
	}

	monitor := tickingMonitor(clockOrDefault(deps), s.interval, func() source.Result[float64] {
		return source.Ok(s.level.Load())
	})
	controller, err := source.NewController(source.ControllerParams[float64]{
		ID:          id,
		DisplayName: "Screen " + name,
		Properties:  property.NewProperties(s.brightness.Erase()),
		Monitor:     monitor,
		Apply: func(level float64, at time.Time) {
			s.brightness.UpdateIfDifferent(level, at)
		},
		Queue:  deps.Queue,
		Clock:  deps.Clock,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	s.Controller = controller
	return s, nil
}

// Brightness returns the typed "Brightness" property.
func (s *Screen) Brightness() *property.Property[float64] {
	return s.brightness
}

// SetBrightness simulates the OS changing the brightness. It shows up on the next poll.
func (s *Screen) SetBrightness(level float64) {
	s.level.Store(level)
}

// UpdateInterval is the poll interval while monitoring and zero otherwise.
func (s *Screen) UpdateInterval() time.Duration {
	if s.State() != source.Monitoring {
		return 0
	}
	return s.interval
}

// IsUpdating reports whether the screen is being polled.
func (s *Screen) IsUpdating() bool {
	return source.IsUpdatingFromInterval(s)
}
