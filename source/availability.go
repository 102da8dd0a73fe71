package source

import (
	"github.com/pkg/errors"
)

// Availability is the capability gate checked before a source starts monitoring.
type Availability int

// The known availabilities.
const (
	Available Availability = iota
	Unavailable
	PermissionDenied
	Restricted
	RequiresPermissionsPrompt
)

var availabilityNames = map[Availability]string{
	Available:                 "available",
	Unavailable:               "unavailable",
	PermissionDenied:          "permission_denied",
	Restricted:                "restricted",
	RequiresPermissionsPrompt: "requires_permissions_prompt",
}

func (a Availability) String() string {
	if name, ok := availabilityNames[a]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the availability by name.
func (a Availability) MarshalText() ([]byte, error) {
	if _, ok := availabilityNames[a]; !ok {
		return nil, errors.Errorf("unknown availability %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText parses a name produced by MarshalText.
func (a *Availability) UnmarshalText(text []byte) error {
	for value, name := range availabilityNames {
		if name == string(text) {
			*a = value
			return nil
		}
	}
	return errors.Errorf("unknown availability %q", text)
}

// Err returns the error a start attempt fails with at this availability, or nil when the source
// may start.
func (a Availability) Err() error {
	switch a {
	case Available:
		return nil
	case PermissionDenied:
		return ErrPermissionDenied
	case Restricted:
		return ErrRestricted
	case RequiresPermissionsPrompt:
		return ErrRequiresPermissionsPrompt
	case Unavailable:
		return ErrUnavailable
	default:
		return errors.Wrapf(ErrUnavailable, "unknown availability %d", int(a))
	}
}
