package mot

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// Similarity compares two appearance features. Higher is more similar.
// Cosine metric gives values in [-1, 1] (0 for zero vectors), Euclidean gives 1/(1+d) in (0, 1].
func Similarity(a, b []float32, metric SimilarityMetric) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.Wrapf(ErrFeatureDimension, "%d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, errors.Wrap(ErrFeatureDimension, "empty feature")
	}
	switch metric {
	case SimilarityEuclidean:
		return float64(1.0 / (1.0 + euclideanFeatureDistance(a, b))), nil
	default:
		return float64(cosineSimilarity(a, b)), nil
	}
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math32.Sqrt(normA) * math32.Sqrt(normB))
}

func euclideanFeatureDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math32.Sqrt(sum)
}
