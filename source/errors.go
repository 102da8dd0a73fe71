package source

import (
	"github.com/pkg/errors"

	"go.viam.com/sensorkit/arbiter"
)

var (
	// ErrPermissionDenied is reported when the user or OS refused access.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrRestricted is reported when access is blocked by policy and cannot be requested.
	ErrRestricted = errors.New("access restricted")
	// ErrRequiresPermissionsPrompt is reported when a prompt is needed but none can be shown.
	ErrRequiresPermissionsPrompt = errors.New("permissions prompt required")
	// ErrUnavailable is reported when the source does not exist on this device.
	ErrUnavailable = errors.New("source unavailable")
	// ErrHardwareUnavailable is reported when a shared hardware resource refused to enable.
	ErrHardwareUnavailable = arbiter.ErrHardwareUnavailable
	// ErrClosed is returned when starting a controller after Close.
	ErrClosed = errors.New("source closed")
)

// OtherError wraps a runtime error delivered by the OS while monitoring.
type OtherError struct {
	Err error
}

// NewOtherError wraps err unless it already belongs to the known taxonomy.
func NewOtherError(err error) error {
	if err == nil {
		return nil
	}
	var other *OtherError
	if errors.As(err, &other) || isKnown(err) {
		return err
	}
	return &OtherError{Err: err}
}

func (e *OtherError) Error() string {
	return "source error: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *OtherError) Unwrap() error {
	return e.Err
}

// Cause returns the underlying error for github.com/pkg/errors.
func (e *OtherError) Cause() error {
	return e.Err
}

func isKnown(err error) bool {
	for _, known := range []error{
		ErrPermissionDenied,
		ErrRestricted,
		ErrRequiresPermissionsPrompt,
		ErrUnavailable,
		ErrHardwareUnavailable,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
