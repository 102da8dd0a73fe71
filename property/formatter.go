package property

import (
	"fmt"
	"strconv"
)

// A Formatter renders a value for display. It must be pure.
type Formatter[V any] interface {
	Format(value V) (string, error)
}

// FormatterFunc adapts a function to a Formatter.
type FormatterFunc[V any] func(value V) (string, error)

// Format calls f.
func (f FormatterFunc[V]) Format(value V) (string, error) {
	return f(value)
}

// Printf formats values with fmt.Sprintf and the given verb, e.g. "%.1f °C".
func Printf[V any](format string) Formatter[V] {
	return FormatterFunc[V](func(value V) (string, error) {
		return fmt.Sprintf(format, value), nil
	})
}

// Default formats values with fmt.Sprint.
func Default[V any]() Formatter[V] {
	return FormatterFunc[V](func(value V) (string, error) {
		return fmt.Sprint(value), nil
	})
}

// Percent renders a 0..1 fraction as a whole percentage.
func Percent() Formatter[float64] {
	return FormatterFunc[float64](func(value float64) (string, error) {
		return strconv.FormatFloat(value*100, 'f', 0, 64) + "%", nil
	})
}

// Bool renders booleans with the given words.
func Bool(whenTrue, whenFalse string) Formatter[bool] {
	return FormatterFunc[bool](func(value bool) (string, error) {
		if value {
			return whenTrue, nil
		}
		return whenFalse, nil
	})
}

// Optional formats pointer values, rendering nil as placeholder.
func Optional[V any](inner Formatter[V], placeholder string) Formatter[*V] {
	return FormatterFunc[*V](func(value *V) (string, error) {
		if value == nil {
			return placeholder, nil
		}
		return inner.Format(*value)
	})
}

// FormatDynamic applies a typed formatter to a dynamically typed value, failing with an
// UnsupportedTypeError when the value is not a V.
func FormatDynamic[V any](formatter Formatter[V], value any) (string, error) {
	typed, ok := value.(V)
	if !ok {
		return "", NewUnsupportedTypeError[V](value)
	}
	return formatter.Format(typed)
}
