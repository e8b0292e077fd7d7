package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is matched by every DimensionMismatchError.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrUnknownAlgorithm is returned for an index algorithm name that is not supported.
	ErrUnknownAlgorithm = errors.New("unknown index algorithm")
	// ErrUnknownMetric is returned for a metric name that is not supported.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrZeroVector is returned when cosine similarity is asked of a zero-magnitude vector.
	ErrZeroVector = errors.New("zero-magnitude vector")
	// ErrAlreadyBuilt is returned by Build on an index that was built before.
	ErrAlreadyBuilt = errors.New("index already built")
	// ErrInvalidEntry is returned by Build for an entry with an empty or duplicate id.
	ErrInvalidEntry = errors.New("invalid entry")
	// ErrNonFinite is returned for a vector holding NaN or infinite components.
	ErrNonFinite = errors.New("non-finite vector component")
)

// DimensionMismatchError reports two vectors (or a vector and an index) of unequal length.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is lets errors.Is(err, ErrDimensionMismatch) match.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

func dimensionMismatch(expected, actual int) error {
	return &DimensionMismatchError{Expected: expected, Actual: actual}
}
