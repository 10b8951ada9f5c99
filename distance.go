package hnsw

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// DistanceFunc computes an ordering score between two equal-length
// vectors, where a smaller score means the vectors are closer. Callers
// must ensure a and b have the same length and contain only finite
// values; the facade validates both before any distance function is
// invoked.
type DistanceFunc func(a, b []float32) float32

// EuclideanDistance returns the L2 distance between a and b.
func EuclideanDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return float32(math.Sqrt(float64(sum)))
}

// CosineDistance returns 1 minus the cosine similarity of a and b, so
// that 0 means identical direction and 2 means opposite. A zero-norm
// vector is defined as maximally dissimilar from everything, including
// itself, and never produces NaN.
func CosineDistance(a, b []float32) float32 {
	normA := vek32.Dot(a, a)
	normB := vek32.Dot(b, b)
	if normA == 0 || normB == 0 {
		return 1.0
	}

	sim := vek32.Dot(a, b) / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
	return 1 - sim
}

// DotProductDistance returns the negated dot product of a and b, so
// that the most similar pair (the largest raw dot product) sorts first.
func DotProductDistance(a, b []float32) float32 {
	return -vek32.Dot(a, b)
}

// CosineSimilarity returns the raw cosine similarity of a and b (1 for
// identical direction, -1 for opposite). Unlike CosineDistance this is
// NOT an ordering score — it is the standalone API-surface helper
// spec.md calls out as easy to confuse with the index's internal
// oriented distance. A zero-norm vector yields similarity 0.
func CosineSimilarity(a, b []float32) float32 {
	normA := vek32.Dot(a, a)
	normB := vek32.Dot(b, b)
	if normA == 0 || normB == 0 {
		return 0
	}
	return vek32.Dot(a, b) / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// DotProduct returns the raw dot product of a and b. Like
// CosineSimilarity, this is the unoriented standalone helper, not the
// index's ordering score (see DotProductDistance).
func DotProduct(a, b []float32) float32 {
	return vek32.Dot(a, b)
}

// metricFuncs maps the metric identities recognized by Config.Metric
// and the snapshot header to their ordering distance function.
var metricFuncs = map[string]DistanceFunc{
	"euclidean":  EuclideanDistance,
	"cosine":     CosineDistance,
	"dotproduct": DotProductDistance,
}
