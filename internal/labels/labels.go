// Package labels turns classifier output into label strings and decides
// which labels a photo may carry to be recommended.
package labels

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kozaktomas/photo-curator/internal/constants"
)

// ErrNoLabel is returned when no prediction passes the confidence threshold
var ErrNoLabel = errors.New("no label above confidence threshold")

// Prediction is a single classifier result
type Prediction struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Classifier labels an encoded image
type Classifier interface {
	Classify(ctx context.Context, image []byte) ([]Prediction, error)
}

// Normalize lowercases and trims a label name. A Caser holds state, so
// each call gets its own.
func Normalize(name string) string {
	return strings.TrimSpace(cases.Lower(language.Und).String(name))
}

// Compose keeps predictions strictly above threshold, orders them by
// descending confidence and joins their normalized names. Duplicate names
// keep their first (most confident) position.
func Compose(predictions []Prediction, threshold float64) string {
	kept := make([]Prediction, 0, len(predictions))
	for _, p := range predictions {
		if p.Confidence > threshold && Normalize(p.Name) != "" {
			kept = append(kept, p)
		}
	}
	slices.SortStableFunc(kept, func(a, b Prediction) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})

	names := make([]string, 0, len(kept))
	seen := make(map[string]bool, len(kept))
	for _, p := range kept {
		n := Normalize(p.Name)
		if seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	return strings.Join(names, constants.LabelSeparator)
}

// Split returns the individual labels of a label string
func Split(label string) []string {
	if label == "" {
		return nil
	}
	parts := strings.Split(label, constants.LabelSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p = Normalize(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
