package property

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// NamespaceOS is the namespace for sources backed by the host operating system.
const NamespaceOS = "os"

var (
	idSectionRegexp = regexp.MustCompile(`^[\w-]+$`)
	idRegexp        = regexp.MustCompile(`^([\w-]+):([\w-]+)/([\w-]+)(#([\w-]+(\.[\w-]+)*))?$`)
)

// ID addresses a source or one of its (possibly nested) properties. A source's ID has an empty
// Path; its properties extend the source ID with one path element per nesting level.
type ID struct {
	Namespace string
	Kind      string
	Instance  string
	Path      []string
}

// NewID returns the ID of a source.
func NewID(namespace, kind, instance string) ID {
	return ID{Namespace: namespace, Kind: kind, Instance: instance}
}

// NewIDFromString parses the output of ID.String.
func NewIDFromString(s string) (ID, error) {
	matches := idRegexp.FindStringSubmatch(s)
	if matches == nil {
		return ID{}, errors.Errorf("string %q is not a valid property id", s)
	}
	id := NewID(matches[1], matches[2], matches[3])
	if matches[5] != "" {
		id.Path = strings.Split(matches[5], ".")
	}
	return id, nil
}

// Child returns the ID of a property nested under id.
func (id ID) Child(elems ...string) ID {
	path := make([]string, 0, len(id.Path)+len(elems))
	path = append(path, id.Path...)
	path = append(path, elems...)
	return ID{Namespace: id.Namespace, Kind: id.Kind, Instance: id.Instance, Path: path}
}

// Source strips the path, yielding the ID of the owning source.
func (id ID) Source() ID {
	return NewID(id.Namespace, id.Kind, id.Instance)
}

// Validate ensures that important fields exist and are valid.
func (id ID) Validate() error {
	for _, section := range []struct{ field, value string }{
		{"namespace", id.Namespace},
		{"kind", id.Kind},
		{"instance", id.Instance},
	} {
		field, value := section.field, section.value
		if value == "" {
			return errors.Errorf("%s field for id missing", field)
		}
		if !idSectionRegexp.MatchString(value) {
			return errors.Errorf("%s field %q contains reserved characters", field, value)
		}
	}
	for _, elem := range id.Path {
		if !idSectionRegexp.MatchString(elem) {
			return errors.Errorf("path element %q contains reserved characters", elem)
		}
	}
	return nil
}

// Equal reports whether two IDs address the same thing.
func (id ID) Equal(other ID) bool {
	return id.String() == other.String()
}

// String renders the ID as "namespace:kind/instance" plus "#a.b" when it has a path.
func (id ID) String() string {
	s := fmt.Sprintf("%s:%s/%s", id.Namespace, id.Kind, id.Instance)
	if len(id.Path) > 0 {
		s += "#" + strings.Join(id.Path, ".")
	}
	return s
}

// UUID derives a stable name-based UUID from the ID.
func (id ID) UUID() uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceX500, []byte(id.String()))
}
