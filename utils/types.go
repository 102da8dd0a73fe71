package utils

import (
	"context"

	"go.uber.org/multierr"
)

// A Closer releases what it holds.
type Closer interface {
	Close(context.Context) error
}

// CloseAll closes closers in reverse order and combines their errors.
func CloseAll[T Closer](ctx context.Context, closers []T) error {
	var err error
	for i := len(closers) - 1; i >= 0; i-- {
		err = multierr.Combine(err, closers[i].Close(ctx))
	}
	return err
}
