package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when two prints cannot be compared.
var ErrDimensionMismatch = errors.New("feature print dimensions differ")

// Print is an opaque perceptual fingerprint of one image.
type Print struct {
	Vector []float32 `json:"vector"`
	// Confidence reported by the extractor, 1 when it has no notion of confidence.
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
}

// Extractor computes prints and the distance between two of them.
// Implementations must be safe for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, imageData []byte) (Print, error)
	Distance(a, b Print) (float64, error)
	Name() string
}

// CosineSimilarity computes the cosine similarity between two embedding vectors
// Returns a value between -1 and 1, where 1 means identical
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineDistance returns 1 - cosine similarity, in [0, 2].
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	return 1 - CosineSimilarity(a, b), nil
}

// RoundUp2 rounds d up to two decimal places. Float noise below 1e-9 is
// ignored so that 0.34 stays 0.34.
func RoundUp2(d float64) float64 {
	return math.Ceil(d*100-1e-9) / 100
}
