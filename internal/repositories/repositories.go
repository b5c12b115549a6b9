// package repositories provides persistence layer implementations for local state.
package repositories

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a keyed row does not exist.
var ErrNotFound = errors.New("not found")

func notFound(kind, id string) error {
	return fmt.Errorf("%s %w: %s", kind, ErrNotFound, id)
}
