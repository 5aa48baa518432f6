package scoring

import (
	"context"
	"fmt"

	"github.com/kozaktomas/photo-curator/internal/constants"
)

// RegressionModel maps a normalized input tensor to a probability
// distribution over the ratings 1..10
type RegressionModel interface {
	Predict(ctx context.Context, tensor []float32) ([]float32, error)
}

// ExpectedScore is the expected rating of a distribution over 1..len(probs)
func ExpectedScore(probs []float32) float64 {
	var score float64
	for i, p := range probs {
		score += float64(p) * float64(i+1)
	}
	return score
}

// Regression scores with the mean of an aesthetic and a technical model
type Regression struct {
	Aesthetic RegressionModel
	Technical RegressionModel
}

// Score implements Scorer
func (r *Regression) Score(ctx context.Context, image []byte) (float64, error) {
	input, err := Normalize(image)
	if err != nil {
		return 0, err
	}

	aesthetic, err := predict(ctx, r.Aesthetic, input)
	if err != nil {
		return 0, fmt.Errorf("aesthetic model: %w", err)
	}
	technical, err := predict(ctx, r.Technical, input)
	if err != nil {
		return 0, fmt.Errorf("technical model: %w", err)
	}
	return (aesthetic + technical) / 2, nil
}

func predict(ctx context.Context, model RegressionModel, input []float32) (float64, error) {
	probs, err := model.Predict(ctx, input)
	if err != nil {
		return 0, err
	}
	if len(probs) != constants.ScoreBuckets {
		return 0, fmt.Errorf("expected %d buckets, got %d", constants.ScoreBuckets, len(probs))
	}
	return ExpectedScore(probs), nil
}
