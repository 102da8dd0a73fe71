package utils

import (
	"reflect"

	"github.com/pkg/errors"
)

// AssertType asserts that from holds a T.
func AssertType[T any](from interface{}) (T, error) {
	asserted, ok := from.(T)
	if !ok {
		return asserted, NewUnexpectedTypeError[T](from)
	}
	return asserted, nil
}

// NewUnexpectedTypeError describes a value that is not of the expected type.
func NewUnexpectedTypeError[T any](actual interface{}) error {
	return errors.Errorf("expected %s but got %T", reflect.TypeOf((*T)(nil)).Elem(), actual)
}
