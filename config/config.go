// Package config defines the process configuration: logging, the delivery context and the
// sources to build.
package config

import (
	"fmt"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/sensorkit/logging"
	"go.viam.com/sensorkit/registry"
)

// A DeliveryMode selects the execution context notifications are delivered on.
type DeliveryMode string

// The delivery modes.
const (
	// DeliverySerial delivers on one dedicated goroutine. It is the default.
	DeliverySerial = DeliveryMode("serial")
	// DeliveryInline delivers on the producing goroutine, serialized by a lock.
	DeliveryInline = DeliveryMode("inline")
)

// DeliveryConfig configures notification delivery.
type DeliveryConfig struct {
	Mode DeliveryMode `json:"mode,omitempty"`
}

// Validate ensures the mode is known.
func (dc DeliveryConfig) Validate(path string) error {
	switch dc.Mode {
	case "", DeliverySerial, DeliveryInline:
		return nil
	default:
		return goutils.NewConfigValidationError(path, errors.Errorf("unknown delivery mode %q", dc.Mode))
	}
}

// Config describes a whole process.
type Config struct {
	ConfigFilePath string `json:"-"`

	Debug     bool                          `json:"debug,omitempty"`
	LogConfig []logging.LoggerPatternConfig `json:"log,omitempty"`
	LogFile   *logging.FileAppenderConfig   `json:"log_file,omitempty"`
	Delivery  DeliveryConfig                `json:"delivery"`
	Sources   []registry.Config             `json:"sources,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	for idx, lpc := range c.LogConfig {
		if _, err := logging.LevelFromString(lpc.Level); err != nil {
			return goutils.NewConfigValidationError(fmt.Sprintf("log.%d", idx), err)
		}
	}
	if c.LogFile != nil && c.LogFile.Path == "" {
		return goutils.NewConfigValidationFieldRequiredError("log_file", "path")
	}
	if err := c.Delivery.Validate("delivery"); err != nil {
		return err
	}
	seen := map[string]struct{}{}
	for idx := range c.Sources {
		path := fmt.Sprintf("sources.%d", idx)
		conf := &c.Sources[idx]
		if err := conf.Validate(path); err != nil {
			return err
		}
		if _, ok := registry.Lookup(conf.Kind); !ok {
			return goutils.NewConfigValidationError(path, errors.Errorf("unknown source kind %q", conf.Kind))
		}
		id := conf.ID().String()
		if _, dup := seen[id]; dup {
			return goutils.NewConfigValidationError(path, errors.Errorf("duplicate source %s", id))
		}
		seen[id] = struct{}{}
	}
	return nil
}

// DeliveryMode returns the configured mode, defaulting to serial.
func (c *Config) DeliveryMode() DeliveryMode {
	if c.Delivery.Mode == "" {
		return DeliverySerial
	}
	return c.Delivery.Mode
}

// UpdateLoggerRegistry applies the config's log patterns to every registered logger.
func (c *Config) UpdateLoggerRegistry(logger logging.Logger) error {
	return logging.GlobalRegistry().UpdateConfig(c.LogConfig, logger)
}
