// Package vector provides similarity helpers for normalized vectors.
package vector

import (
	"fmt"
	"math"
)

// Normalize scales buf[offset:offset+length] to unit L2 norm in place and returns
// the norm it divided by. A zero vector is left untouched and 0 is returned.
func Normalize(buf []float32, offset, length int) float32 {
	var sum float32
	for i := offset; i < offset+length; i++ {
		sum += buf[i] * buf[i]
	}
	if sum == 0 {
		return 0
	}
	norm := float32(math.Sqrt(float64(sum)))
	for i := offset; i < offset+length; i++ {
		buf[i] /= norm
	}
	return norm
}

// NormalizeVector normalizes the whole slice in place.
func NormalizeVector(v []float32) float32 {
	return Normalize(v, 0, len(v))
}

// Dot returns the inner product of other with the len(other) elements of buf
// starting at offset. For normalized vectors this equals cosine similarity.
func Dot(buf []float32, offset int, other []float32) (float32, error) {
	if offset < 0 || len(other) > len(buf)-offset {
		return 0, fmt.Errorf("%w: offset %d, length %d, buffer length %d",
			ErrInvalidArgument, offset, len(other), len(buf))
	}
	row := buf[offset : offset+len(other)]
	var dot float32
	for i, v := range other {
		dot += row[i] * v
	}
	return dot, nil
}
