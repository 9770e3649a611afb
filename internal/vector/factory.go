package vector

import "fmt"

// EngineType selects an Engine implementation.
type EngineType string

const (
	// EngineTypeExact is the parallel brute-force engine. Default.
	EngineTypeExact EngineType = "exact"
	// EngineTypeMemory is the sequential brute-force engine.
	EngineTypeMemory EngineType = "memory"
)

// Options configures engines created by NewEngine.
type Options struct {
	Type      string
	Workers   int
	Selection string
}

// Factory creates an engine for a collection once its dimensionality is known.
type Factory func(dimensions int) (Engine, error)

// NewEngine creates an engine of the configured type.
// Supported types: "exact" (default), "memory".
func NewEngine(opts Options, dimensions int) (Engine, error) {
	selection, err := ParseSelection(opts.Selection)
	if err != nil {
		return nil, err
	}
	switch EngineType(opts.Type) {
	case EngineTypeExact, "":
		e, err := NewExactEngine(dimensions, opts.Workers, selection)
		if err != nil {
			return nil, err
		}
		return e, nil
	case EngineTypeMemory:
		m, err := NewMemoryIndex(dimensions, selection)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %s (supported: exact, memory)", ErrUnknownEngine, opts.Type)
	}
}

// NewFactory validates opts and returns a Factory bound to them.
func NewFactory(opts Options) (Factory, error) {
	if _, err := ParseSelection(opts.Selection); err != nil {
		return nil, err
	}
	switch EngineType(opts.Type) {
	case EngineTypeExact, EngineTypeMemory, "":
	default:
		return nil, fmt.Errorf("%w: %s (supported: exact, memory)", ErrUnknownEngine, opts.Type)
	}
	return func(dimensions int) (Engine, error) {
		return NewEngine(opts, dimensions)
	}, nil
}
