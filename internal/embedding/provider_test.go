package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity_IdenticalVectorsIsOne(t *testing.T) {
	v := []float32{1, 2, 3}
	assert.InDelta(t, 1.0, Similarity(v, v), 1e-9)
}

func TestSimilarity_OrthogonalVectorsIsZero(t *testing.T) {
	assert.InDelta(t, 0.0, Similarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestSimilarity_OppositeVectorsIsNegativeOne(t *testing.T) {
	assert.InDelta(t, -1.0, Similarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
}

func TestSimilarity_ZeroNormReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, Similarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, Similarity([]float32{1, 1}, []float32{0, 0}))
}

func TestSimilarity_MismatchedLengthReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, Similarity([]float32{1, 2}, []float32{1, 2, 3}))
}

func TestSimilarity_EmptyVectorsReturnZero(t *testing.T) {
	assert.Equal(t, 0.0, Similarity(nil, nil))
}

func TestZeroVector_HasRequestedDimension(t *testing.T) {
	v := zeroVector(768)
	assert.Len(t, v, 768)
	for _, f := range v {
		assert.Zero(t, f)
	}
}

func TestNormalizeFromValues_ConvertsToFloat32(t *testing.T) {
	got := normalizeFromValues([]float64{1.5, -2.25})
	assert.Equal(t, []float32{1.5, -2.25}, got)
}
