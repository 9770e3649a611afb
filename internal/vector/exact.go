package vector

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ExactEngine is a brute-force engine that keeps every vector of a collection in
// one contiguous row-major buffer and splits the dot product pass of a query
// across a fixed worker pool. Results are exact.
type ExactEngine struct {
	dimensions  int
	vectors     []float32
	slots       []Similarity
	pool        *WorkerPool
	selection   Selection
	mu          sync.Mutex
	numQueries  atomic.Int64
	dotNanos    atomic.Int64
	selectNanos atomic.Int64
}

// EngineStats are cumulative query timings of an ExactEngine.
type EngineStats struct {
	Queries       int64         `json:"queries"`
	DotTime       time.Duration `json:"dot_time_ns"`
	SelectionTime time.Duration `json:"selection_time_ns"`
}

// NewExactEngine creates an engine for vectors of the given dimensionality using
// workers goroutines (<= 0 means one per CPU). A nil selection uses HeapSelection.
func NewExactEngine(dimensions, workers int, selection Selection) (*ExactEngine, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if selection == nil {
		selection = HeapSelection{}
	}
	return &ExactEngine{
		dimensions: dimensions,
		vectors:    make([]float32, 0),
		slots:      make([]Similarity, 0),
		pool:       NewWorkerPool(workers),
		selection:  selection,
	}, nil
}

// Type returns the engine type identifier.
func (e *ExactEngine) Type() string {
	return string(EngineTypeExact)
}

// Dimensions returns the configured dimensionality.
func (e *ExactEngine) Dimensions() int {
	return e.dimensions
}

// Workers returns the worker pool size.
func (e *ExactEngine) Workers() int {
	return e.pool.Size()
}

// Ingest appends vectors. The buffer is reallocated to its new total size and
// the previous rows are copied, so callers should batch.
func (e *ExactEngine) Ingest(ctx context.Context, vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != e.dimensions {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), e.dimensions)
		}
	}
	if len(vectors) == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	newVectors := make([]float32, len(e.vectors)+len(vectors)*e.dimensions)
	copy(newVectors, e.vectors)
	offset := len(e.vectors)
	for _, v := range vectors {
		copy(newVectors[offset:offset+e.dimensions], v)
		offset += e.dimensions
	}
	e.vectors = newVectors

	newSlots := make([]Similarity, len(e.slots)+len(vectors))
	copy(newSlots, e.slots)
	e.slots = newSlots
	return nil
}

// Query returns the k rows most similar to probe. The probe is used as given;
// normalize it first for cosine similarity.
func (e *ExactEngine) Query(ctx context.Context, probe []float32, k int) ([]Similarity, error) {
	if len(probe) != e.dimensions {
		return nil, fmt.Errorf("%w: probe has %d dimensions, expected %d",
			ErrDimensionMismatch, len(probe), e.dimensions)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	total := len(e.slots)
	if k <= 0 || total == 0 {
		return nil, nil
	}
	for i := range e.slots {
		e.slots[i].Index = int32(i)
	}

	dotStart := time.Now()
	if err := e.scoreRows(ctx, probe, total); err != nil {
		return nil, err
	}
	e.dotNanos.Add(int64(time.Since(dotStart)))

	selectStart := time.Now()
	top := e.selection.Select(e.slots, k)
	e.selectNanos.Add(int64(time.Since(selectStart)))
	e.numQueries.Add(1)
	return top, nil
}

// scoreRows fills every slot's similarity. Rows are split into contiguous
// chunks of ceil(total/workers), one pool task per chunk; chunks are disjoint.
func (e *ExactEngine) scoreRows(ctx context.Context, probe []float32, total int) error {
	workers := e.pool.Size()
	chunkSize := (total + workers - 1) / workers

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() { firstErr = err })
	}
	vectors, slots, dims := e.vectors, e.slots, e.dimensions

	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, total)
		if start >= end {
			break
		}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					fail(fmt.Errorf("rows %d-%d: panic: %v", start, end, r))
				}
			}()
			for j, offset := start, start*dims; j < end; j, offset = j+1, offset+dims {
				sim, err := Dot(vectors, offset, probe)
				if err != nil {
					fail(fmt.Errorf("row %d: %w", j, err))
					return
				}
				slots[j].Similarity = sim
			}
		}
		if err := e.pool.Submit(ctx, task); err != nil {
			wg.Done()
			fail(fmt.Errorf("submit rows %d-%d: %w", start, end, err))
			break
		}
	}
	wg.Wait()
	if firstErr != nil {
		return fmt.Errorf("similarity pass failed: %w", firstErr)
	}
	return nil
}

// Count returns the number of ingested vectors.
func (e *ExactEngine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.slots)
}

// Stats returns cumulative query statistics.
func (e *ExactEngine) Stats() EngineStats {
	return EngineStats{
		Queries:       e.numQueries.Load(),
		DotTime:       time.Duration(e.dotNanos.Load()),
		SelectionTime: time.Duration(e.selectNanos.Load()),
	}
}

// Close stops the worker pool. The engine must not be used afterwards.
func (e *ExactEngine) Close() error {
	e.pool.Close()
	return nil
}
