package vector

import (
	"context"
	"fmt"
	"sync"
)

// MemoryIndex is a single-goroutine brute-force engine. It keeps one slice per
// vector and allocates a fresh score array per query. Suitable for small
// collections and as a reference for ExactEngine.
type MemoryIndex struct {
	dimensions int
	vectors    [][]float32
	selection  Selection
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory engine with the given dimension.
func NewMemoryIndex(dimensions int, selection Selection) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if selection == nil {
		selection = SortSelection{}
	}
	return &MemoryIndex{
		dimensions: dimensions,
		vectors:    make([][]float32, 0),
		selection:  selection,
	}, nil
}

// Type returns the engine type identifier.
func (m *MemoryIndex) Type() string {
	return string(EngineTypeMemory)
}

// Dimensions returns the configured dimensionality.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Ingest appends copies of vectors.
func (m *MemoryIndex) Ingest(ctx context.Context, vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != m.dimensions {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range vectors {
		vec := make([]float32, m.dimensions)
		copy(vec, v)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Query returns the top-k vectors by inner product.
func (m *MemoryIndex) Query(ctx context.Context, probe []float32, k int) ([]Similarity, error) {
	if len(probe) != m.dimensions {
		return nil, fmt.Errorf("%w: probe has %d dimensions, expected %d",
			ErrDimensionMismatch, len(probe), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.vectors) == 0 {
		return nil, nil
	}
	scores := make([]Similarity, len(m.vectors))
	for i, vec := range m.vectors {
		sim, err := Dot(vec, 0, probe)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		scores[i] = Similarity{Index: int32(i), Similarity: sim}
	}
	return m.selection.Select(scores, k), nil
}

// Count returns the number of vectors in the index.
func (m *MemoryIndex) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
