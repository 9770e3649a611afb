package vector

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomVector(rng *rand.Rand, dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}

func randomUnitVectors(rng *rand.Rand, n, dims int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = randomVector(rng, dims)
		NormalizeVector(out[i])
	}
	return out
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	norm := NormalizeVector(v)
	assert.InDelta(t, 5, norm, 1e-6)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
}

func TestNormalize_Idempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := 0; n < 50; n++ {
		v := randomVector(rng, 64)
		NormalizeVector(v)
		again := append([]float32(nil), v...)
		norm := NormalizeVector(again)
		assert.InDelta(t, 1, norm, 1e-5)
		for i := range v {
			assert.InDelta(t, v[i], again[i], 1e-6)
		}
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	assert.Equal(t, float32(0), NormalizeVector(v))
	assert.Equal(t, []float32{0, 0, 0}, v)
}

func TestNormalize_OffsetOnlyTouchesRange(t *testing.T) {
	buf := []float32{9, 3, 4, 9}
	Normalize(buf, 1, 2)
	assert.Equal(t, float32(9), buf[0])
	assert.Equal(t, float32(9), buf[3])
	assert.InDelta(t, 0.6, buf[1], 1e-6)
	assert.InDelta(t, 0.8, buf[2], 1e-6)
}

func TestDot(t *testing.T) {
	tests := []struct {
		name   string
		buf    []float32
		offset int
		other  []float32
		want   float32
	}{
		{"whole buffer", []float32{1, 2, 3}, 0, []float32{4, 5, 6}, 32},
		{"with offset", []float32{9, 9, 1, 2}, 2, []float32{3, 4}, 11},
		{"shorter other", []float32{1, 2, 3, 4}, 1, []float32{1}, 2},
		{"empty other", []float32{1}, 1, []float32{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Dot(tt.buf, tt.offset, tt.other)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestDot_InvalidArgument(t *testing.T) {
	_, err := Dot([]float32{1, 2, 3}, 2, []float32{1, 2})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Dot([]float32{1, 2, 3}, -1, []float32{1})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Dot([]float32{1, 2}, 0, []float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDot_OffsetMatchesStandaloneCopy(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	const dims = 17
	buf := randomVector(rng, dims*12)
	probe := randomVector(rng, dims)
	for offset := 0; offset <= len(buf)-dims; offset++ {
		standalone := append([]float32(nil), buf[offset:offset+dims]...)
		want, err := Dot(standalone, 0, probe)
		require.NoError(t, err)
		got, err := Dot(buf, offset, probe)
		require.NoError(t, err)
		assert.Equal(t, math.Float32bits(want), math.Float32bits(got), "offset %d", offset)
	}
}
