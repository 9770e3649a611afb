// Package vector provides nearest neighbour engines and top-k selection.
package vector

import (
	"context"
	"errors"
)

var (
	// ErrInvalidArgument is returned by Dot for an out-of-range offset or length.
	ErrInvalidArgument = errors.New("invalid offset or vector length")
	// ErrDimensionMismatch is returned when a vector does not match the engine dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrPoolClosed is returned when submitting to a closed worker pool.
	ErrPoolClosed = errors.New("worker pool closed")
	// ErrUnknownEngine is returned by the factory for an unsupported engine type.
	ErrUnknownEngine = errors.New("unknown engine type")
)

// Engine stores vectors for one collection and answers top-k similarity queries.
// Indexes returned by Query refer to ingestion order, starting at 0.
type Engine interface {
	Ingest(ctx context.Context, vectors [][]float32) error
	Query(ctx context.Context, probe []float32, k int) ([]Similarity, error)
	Count() int
	Dimensions() int
	Type() string
	Close() error
}

// Similarity is a single row score. Engines keep one per ingested vector and
// overwrite it on every query; callers only ever receive copies.
type Similarity struct {
	Index      int32
	Similarity float32
}
