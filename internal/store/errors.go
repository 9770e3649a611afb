package store

import (
	"errors"
	"fmt"

	"github.com/hyperjump/vecstore/internal/vector"
)

var (
	// ErrCollectionNotFound is returned for an unknown collection id.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrInvalidCollectionID is returned for ids that cannot name a collection file.
	ErrInvalidCollectionID = errors.New("invalid collection id")
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")
	// ErrTruncated is returned when a collection file ends inside a record.
	ErrTruncated = errors.New("truncated record")
	// ErrCorrupt is returned when a collection file holds an impossible value.
	ErrCorrupt = errors.New("corrupt record")
)

// DimensionMismatchError reports a vector whose length differs from the
// collection's dimensionality. URI is empty for query probes.
type DimensionMismatchError struct {
	CollectionID string
	Expected     int
	Actual       int
	URI          string
	Index        int32
}

func (e *DimensionMismatchError) Error() string {
	if e.URI == "" {
		return fmt.Sprintf("invalid vector length for collection %s: expected %d, actual %d",
			e.CollectionID, e.Expected, e.Actual)
	}
	return fmt.Sprintf("invalid vector length for collection %s: expected %d, actual %d, uri: %s, index: %d",
		e.CollectionID, e.Expected, e.Actual, e.URI, e.Index)
}

// Is makes errors.Is(err, vector.ErrDimensionMismatch) match.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == vector.ErrDimensionMismatch
}

// IsValidation reports whether err is caused by bad caller input rather than I/O.
func IsValidation(err error) bool {
	return errors.Is(err, vector.ErrDimensionMismatch) ||
		errors.Is(err, vector.ErrInvalidArgument) ||
		errors.Is(err, ErrInvalidCollectionID) ||
		errors.Is(err, ErrInvalidK)
}
