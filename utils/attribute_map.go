package utils

import (
	"github.com/pkg/errors"
)

// AttributeMap is a convenience wrapper for pulling out typed information from a map.
type AttributeMap map[string]interface{}

// Has returns whether or not the given name is in the map.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// String returns the string value for name, or def when absent.
func (am AttributeMap) String(name, def string) (string, error) {
	x, has := am[name]
	if !has || x == nil {
		return def, nil
	}
	s, ok := x.(string)
	if !ok {
		return "", errors.Errorf("wanted a string for (%s) but got (%v) %T", name, x, x)
	}
	return s, nil
}

// Int returns the int value for name, or def when absent. JSON numbers decode as float64 and
// are accepted when they are whole.
func (am AttributeMap) Int(name string, def int) (int, error) {
	x, has := am[name]
	if !has || x == nil {
		return def, nil
	}
	switch v := x.(type) {
	case int:
		return v, nil
	case float64:
		if v != float64(int(v)) {
			return 0, errors.Errorf("wanted an int for (%s) but got fractional %v", name, v)
		}
		return int(v), nil
	default:
		return 0, errors.Errorf("wanted an int for (%s) but got (%v) %T", name, x, x)
	}
}

// Bool returns the bool value for name, or def when absent.
func (am AttributeMap) Bool(name string, def bool) (bool, error) {
	x, has := am[name]
	if !has || x == nil {
		return def, nil
	}
	b, ok := x.(bool)
	if !ok {
		return false, errors.Errorf("wanted a bool for (%s) but got (%v) %T", name, x, x)
	}
	return b, nil
}
