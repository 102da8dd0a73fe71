package source

import (
	"github.com/pkg/errors"
)

// Result is one delivery from the hardware: either a reading or an error, never both.
type Result[R any] struct {
	value R
	err   error
}

// Ok wraps a reading.
func Ok[R any](value R) Result[R] {
	return Result[R]{value: value}
}

// Err wraps a failure. A nil err is itself reported as an error.
func Err[R any](err error) Result[R] {
	if err == nil {
		err = errors.New("hardware delivered a failure without an error")
	}
	return Result[R]{err: err}
}

// Get returns the reading or the failure.
func (r Result[R]) Get() (R, error) {
	return r.value, r.err
}

// IsOk reports whether the result holds a reading.
func (r Result[R]) IsOk() bool {
	return r.err == nil
}
