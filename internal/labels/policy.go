package labels

import (
	"slices"
)

// Policy decides whether a label string qualifies a photo.
// Exclusion always takes precedence over the required set.
type Policy struct {
	required map[string]struct{}
	excluded map[string]struct{}
}

// NewPolicy builds a policy from required and excluded label names
func NewPolicy(required, excluded []string) Policy {
	return Policy{
		required: toSet(required),
		excluded: toSet(excluded),
	}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = Normalize(n); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Required returns the required labels, sorted
func (p Policy) Required() []string {
	return sortedKeys(p.required)
}

// Excluded returns the excluded labels, sorted
func (p Policy) Excluded() []string {
	return sortedKeys(p.excluded)
}

// Allows reports whether a photo with label passes the policy:
//   - an empty label never passes
//   - any excluded label rejects
//   - otherwise a non-empty required set must intersect the label
//   - an empty required set accepts
func (p Policy) Allows(label string) bool {
	parts := Split(label)
	if len(parts) == 0 {
		return false
	}
	for _, l := range parts {
		if _, ok := p.excluded[l]; ok {
			return false
		}
	}
	if len(p.required) == 0 {
		return true
	}
	for _, l := range parts {
		if _, ok := p.required[l]; ok {
			return true
		}
	}
	return false
}
