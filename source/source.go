// Package source defines sources of properties and the lifecycle of the ones that can be started
// and stopped.
package source

import (
	"time"

	"go.viam.com/sensorkit/notify"
	"go.viam.com/sensorkit/property"
)

// A Source exposes a fixed, ordered set of properties and an availability.
type Source interface {
	property.Provider
	ID() property.ID
	DisplayName() string
	Availability() Availability
}

// A Controllable is a Source whose active monitoring can be started and stopped.
type Controllable interface {
	Source
	// StartUpdating begins monitoring. It is a no-op while already monitoring or awaiting
	// permission.
	StartUpdating() error
	// StopUpdating returns to idle. It is a no-op when idle.
	StopUpdating()
	IsUpdating() bool
	SubscribeEvents(listener func(Event)) *notify.Token
}

// An UpdateIntervalReporter is a polled source. A zero interval means it is not polling.
type UpdateIntervalReporter interface {
	UpdateInterval() time.Duration
}

// IsUpdatingFromInterval derives IsUpdating for polled sources.
func IsUpdatingFromInterval(r UpdateIntervalReporter) bool {
	return r.UpdateInterval() > 0
}
