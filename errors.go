package sfmgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/sfmgo/gcp"
	"github.com/hupe1980/sfmgo/tracks"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist in
	// the map.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when creating an entity whose id is
	// already registered.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidState is returned when an operation would break a map
	// invariant, such as linking entities owned by different maps or
	// re-posing a shot that shares its rig instance.
	ErrInvalidState = errors.New("invalid state")
)

// ErrDimensionMismatch indicates payload data of the wrong size, such as a
// mesh face referencing a vertex that does not exist.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// translateError normalizes errors from the subsystem packages onto the
// map-level sentinels so callers only match against one vocabulary.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, tracks.ErrNotFound) || errors.Is(err, gcp.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, gcp.ErrDuplicateKey) {
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	}

	return err
}
