package property

import (
	"reflect"

	"go.viam.com/sensorkit/notify"
	"go.viam.com/sensorkit/utils"
)

// AnyProperty is a non-owning, type-erased view over a Property. It holds no state of its own:
// two views over the same Property always agree.
type AnyProperty interface {
	ID() ID
	DisplayName() string
	// ValueType is the static value type of the wrapped Property.
	ValueType() reflect.Type
	// DynamicValue returns the current value and false if it was never observed.
	DynamicValue() (any, bool)
	// Snapshot returns the current erased snapshot and false if it was never observed.
	Snapshot() (AnySnapshot, bool)
	// FormattedValue renders the current value with the wrapped Property's formatter.
	FormattedValue() (string, error)
	// Format renders value, typically one carried by a notification, with the wrapped Property's
	// formatter. It fails with an UnsupportedTypeError if value is not of the property's type.
	Format(value any) (string, error)
	// Subscribe forwards raw update notifications.
	Subscribe(listener func(AnySnapshot)) *notify.Token
	// Unwrap returns the concrete *Property[V] as an interface value.
	Unwrap() any
}

type box[V any] struct {
	p *Property[V]
}

func (b *box[V]) ID() ID {
	return b.p.ID()
}

func (b *box[V]) DisplayName() string {
	return b.p.DisplayName()
}

func (b *box[V]) ValueType() reflect.Type {
	return typeOf[V]()
}

func (b *box[V]) DynamicValue() (any, bool) {
	value, ok := b.p.Value()
	if !ok {
		return nil, false
	}
	return value, true
}

func (b *box[V]) Snapshot() (AnySnapshot, bool) {
	snapshot, ok := b.p.Snapshot()
	if !ok {
		return AnySnapshot{}, false
	}
	return snapshot.Erase(), true
}

func (b *box[V]) FormattedValue() (string, error) {
	return b.p.Formatted()
}

func (b *box[V]) Format(value any) (string, error) {
	return FormatDynamic(b.p.formatter, value)
}

func (b *box[V]) Subscribe(listener func(AnySnapshot)) *notify.Token {
	return b.p.Subscribe(func(snapshot Snapshot[V]) {
		listener(snapshot.Erase())
	})
}

func (b *box[V]) Unwrap() any {
	return b.p
}

// Erase is a convenience for building a list of views from properties of mixed types.
func Erase(props ...interface{ Erase() AnyProperty }) []AnyProperty {
	erased := make([]AnyProperty, 0, len(props))
	for _, p := range props {
		erased = append(erased, p.Erase())
	}
	return erased
}

// As downcasts a view back to its concrete Property. It fails with an UnsupportedTypeError when
// the wrapped value type is not V.
func As[V any](ap AnyProperty) (*Property[V], error) {
	p, err := utils.AssertType[*Property[V]](ap.Unwrap())
	if err != nil {
		return nil, &UnsupportedTypeError{Expected: typeOf[V](), Actual: ap.ValueType()}
	}
	return p, nil
}

// FormatAs renders the view's current value with a caller supplied formatter for V. It fails
// with an UnsupportedTypeError if the view does not hold V values, and with ErrNotObserved before
// the first update.
func FormatAs[V any](ap AnyProperty, formatter Formatter[V]) (string, error) {
	if ap.ValueType() != typeOf[V]() {
		return "", &UnsupportedTypeError{Expected: typeOf[V](), Actual: ap.ValueType()}
	}
	value, ok := ap.DynamicValue()
	if !ok {
		return "", ErrNotObserved
	}
	return FormatDynamic(formatter, value)
}
