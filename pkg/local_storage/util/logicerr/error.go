package logicerr

import (
	"errors"
	"fmt"
)

// Error is wrapped to highlight the usage errors of the storage: writes
// into read-only containers, malformed keys, missing chunk identifiers.
// Such errors are not retriable.
var Error = errors.New("logical error")

// New returns simple error with a provided error message.
func New(msg string) error {
	return Wrap(errors.New(msg))
}

// Wrap wraps arbitrary error into a logical one.
func Wrap(err error) error {
	return fmt.Errorf("%w: %w", Error, err)
}

// Is reports whether err was produced by New or Wrap.
func Is(err error) bool {
	return errors.Is(err, Error)
}
