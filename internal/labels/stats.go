package labels

import (
	"cmp"
	"slices"
)

// LabelCount is the number of photos carrying a label
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Statistics counts individual labels across label strings
func Statistics(labelStrings []string) map[string]int {
	counts := make(map[string]int)
	for _, s := range labelStrings {
		for _, l := range Split(s) {
			counts[l]++
		}
	}
	return counts
}

// Suggest returns the limit most frequent labels, ties broken alphabetically
func Suggest(labelStrings []string, limit int) []LabelCount {
	counts := Statistics(labelStrings)
	out := make([]LabelCount, 0, len(counts))
	for l, c := range counts {
		out = append(out, LabelCount{Label: l, Count: c})
	}
	slices.SortFunc(out, func(a, b LabelCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
