package property

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// ErrNotObserved is returned when a formatted value is requested before the first update.
var ErrNotObserved = errors.New("property has not been observed yet")

// UnsupportedTypeError is returned when a formatter or downcast receives a value of a type
// outside its domain.
type UnsupportedTypeError struct {
	Expected reflect.Type
	Actual   reflect.Type
}

// NewUnsupportedTypeError builds an UnsupportedTypeError for a value that should have been V.
func NewUnsupportedTypeError[V any](actual any) error {
	return &UnsupportedTypeError{Expected: typeOf[V](), Actual: reflect.TypeOf(actual)}
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported type %v (expected %v)", e.Actual, e.Expected)
}

// IsUnsupportedType returns whether err is, or wraps, an UnsupportedTypeError.
func IsUnsupportedType(err error) bool {
	var target *UnsupportedTypeError
	return errors.As(err, &target)
}

func typeOf[V any]() reflect.Type {
	return reflect.TypeOf((*V)(nil)).Elem()
}
