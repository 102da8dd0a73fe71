package property

import (
	"reflect"
	"time"

	"github.com/google/go-cmp/cmp"
)

// A Snapshot is one observed reading. Snapshots are values; a Property replaces its Snapshot
// wholesale on every update.
type Snapshot[V any] struct {
	Value      V
	CapturedAt time.Time
}

// Equal compares value and capture time structurally.
func (s Snapshot[V]) Equal(other Snapshot[V]) bool {
	return s.CapturedAt.Equal(other.CapturedAt) && valuesEqual(s.Value, other.Value)
}

// Erase returns the dynamically typed form of the snapshot.
func (s Snapshot[V]) Erase() AnySnapshot {
	return AnySnapshot{Value: s.Value, CapturedAt: s.CapturedAt}
}

// AnySnapshot is a Snapshot whose value type has been erased.
type AnySnapshot struct {
	Value      any
	CapturedAt time.Time
}

// exportAll lets cmp look into unexported struct fields so arbitrary reading types compare
// structurally without custom options.
var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

// valuesEqual is the default equality used when no custom one is supplied. Types with an
// Equal method (time.Time, etc.) are compared with it.
func valuesEqual[V any](a, b V) bool {
	return cmp.Equal(a, b, exportAll)
}
