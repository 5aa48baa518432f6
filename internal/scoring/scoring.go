// Package scoring rates photo quality on a 1 to 10 scale, either with two
// NIMA style regression models or with a vision aesthetics estimator.
package scoring

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrUtilityImage signals a screenshot, document or similar photo that must
// be dropped rather than scored
var ErrUtilityImage = errors.New("utility image")

// Strategy selects a scorer
type Strategy string

const (
	StrategyRegression Strategy = "regression"
	StrategyVision     Strategy = "vision"
)

// ParseStrategy validates a strategy name
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case StrategyRegression, StrategyVision:
		return Strategy(name), nil
	default:
		return "", fmt.Errorf("unknown scoring strategy %q (use regression or vision)", name)
	}
}

// Scorer rates one encoded image. Implementations are safe for concurrent use.
type Scorer interface {
	Score(ctx context.Context, image []byte) (float64, error)
}

// Scored pairs an item with its score for ranking
type Scored[T any] struct {
	Item  T
	Score float64
}

// SortByScore orders items by descending score, keeping input order for ties
func SortByScore[T any](items []Scored[T]) {
	slices.SortStableFunc(items, func(a, b Scored[T]) int {
		return cmp.Compare(b.Score, a.Score)
	})
}
