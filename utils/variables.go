package utils

import (
	"regexp"

	"github.com/pkg/errors"
)

const maxNameLength = 60

// ValidNameRegex matches source names and kind halves: a leading letter or digit followed by up
// to 59 letters, digits, dashes or underscores.
var ValidNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([-\w]){0,59}$`)

// ErrInvalidName explains why name does not match ValidNameRegex.
func ErrInvalidName(name string) error {
	if len(name) > maxNameLength {
		return errors.Errorf("name %q must be %d characters or fewer", name, maxNameLength)
	}
	return errors.Errorf("name %q must start with a letter or number and must only contain letters, numbers, dashes, and underscores", name)
}
