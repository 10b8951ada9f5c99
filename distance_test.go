package hnsw

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEuclideanDistance(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	require.Equal(t, float32(5.196152), EuclideanDistance(a, b))
}

func TestDistance_SelfIsZero(t *testing.T) {
	v := []float32{0.3, -0.4, 0.7, 1.1}

	require.InDelta(t, 0, EuclideanDistance(v, v), 1e-5)
	require.InDelta(t, 0, CosineDistance(v, v), 1e-5)
	require.InDelta(t, 0, DotProductDistance(v, v)+DotProduct(v, v), 1e-5)
}

func TestCosineDistance_ZeroNorm(t *testing.T) {
	zero := []float32{0, 0, 0, 0}
	other := []float32{1, 2, 3, 4}

	require.Equal(t, float32(1.0), CosineDistance(zero, other))
	require.Equal(t, float32(1.0), CosineDistance(zero, zero))
	require.False(t, math.IsNaN(float64(CosineDistance(zero, zero))))
}

func TestStandaloneHelpers(t *testing.T) {
	// Scenario 5: orthogonal unit vectors.
	a := []float32{1, 0, 0, 0}
	b := []float32{0, 1, 0, 0}

	require.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-6)
	require.InDelta(t, 1.414214, EuclideanDistance(a, b), 1e-5)
	require.InDelta(t, 0.0, DotProduct(a, b), 1e-6)
}

func TestDotProductDistance_Orientation(t *testing.T) {
	near := []float32{1, 1, 1}
	far := []float32{0, 0, 0.1}
	q := []float32{1, 1, 1}

	require.Less(t, DotProductDistance(q, near), DotProductDistance(q, far))
}
