package scoring

import (
	"context"
)

// Aesthetics is the raw output of a vision aesthetics estimator
type Aesthetics struct {
	Score     float64 `json:"score"` // in [-1, 1]
	IsUtility bool    `json:"is_utility"`
}

// AestheticsModel estimates overall aesthetics of an encoded image
type AestheticsModel interface {
	Aesthetics(ctx context.Context, image []byte) (Aesthetics, error)
}

// Remap maps an aesthetics score from [-1, 1] to [1, 10]
func Remap(s float64) float64 {
	return ((s+1)/2)*9 + 1
}

// Vision scores with a single aesthetics estimator
type Vision struct {
	Model AestheticsModel
}

// Score implements Scorer. Utility images return ErrUtilityImage.
func (v *Vision) Score(ctx context.Context, image []byte) (float64, error) {
	a, err := v.Model.Aesthetics(ctx, image)
	if err != nil {
		return 0, err
	}
	if a.IsUtility {
		return 0, ErrUtilityImage
	}
	return Remap(min(max(a.Score, -1), 1)), nil
}
