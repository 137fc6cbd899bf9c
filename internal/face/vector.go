package face

import (
	"math"
)

// Dim is the fixed dimension of face feature vectors produced by the capture
// pipeline.
const Dim = 128

// ValidateVector checks that v has exactly Dim finite components.
func ValidateVector(v []float32) error {
	if len(v) != Dim {
		return &ValidationError{Reason: "wrong length", Length: len(v)}
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &ValidationError{Reason: "non-finite component", Length: len(v), Index: i}
		}
	}
	return nil
}

// Cosine computes the cosine similarity between a and b, accumulating in
// float64. Returns 0 when either vector has zero norm, and clamps the result
// to [-1, 1] to absorb floating point error.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return sim
}

// Centroid computes the element-wise mean of the given vectors. All vectors
// must share the same length.
func Centroid(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sums := make([]float64, dim)
	for _, v := range vectors {
		for i, x := range v {
			sums[i] += float64(x)
		}
	}
	centroid := make([]float32, dim)
	n := float64(len(vectors))
	for i, s := range sums {
		centroid[i] = float32(s / n)
	}
	return centroid
}
