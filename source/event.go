package source

import (
	"fmt"
	"time"
)

// EventKind discriminates controller events.
type EventKind int

// The controller event kinds.
const (
	StartedUpdating EventKind = iota
	// StoppedUpdating carries a nil Err for a requested stop and the failure otherwise.
	StoppedUpdating
	RequestingPermission
	AvailabilityUpdated
)

func (k EventKind) String() string {
	switch k {
	case StartedUpdating:
		return "started_updating"
	case StoppedUpdating:
		return "stopped_updating"
	case RequestingPermission:
		return "requesting_permission"
	case AvailabilityUpdated:
		return "availability_updated"
	default:
		return fmt.Sprintf("event_kind(%d)", int(k))
	}
}

// An Event is published on a controllable source's event stream.
type Event struct {
	Kind EventKind
	// Err is set only on StoppedUpdating events caused by a failure.
	Err error
	// Availability is set only on AvailabilityUpdated events.
	Availability Availability
	At           time.Time
}

func (e Event) String() string {
	switch e.Kind {
	case StoppedUpdating:
		if e.Err != nil {
			return fmt.Sprintf("%v(%v)", e.Kind, e.Err)
		}
	case AvailabilityUpdated:
		return fmt.Sprintf("%v(%v)", e.Kind, e.Availability)
	case StartedUpdating, RequestingPermission:
	}
	return e.Kind.String()
}
