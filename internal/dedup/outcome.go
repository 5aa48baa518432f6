// Package dedup removes near-duplicate and unqualified photos from a group
// before recommendation.
package dedup

// Reason explains why an asset was kept or removed
type Reason string

const (
	ReasonKept          Reason = "kept"
	ReasonSimilar       Reason = "similar"
	ReasonDuplicateID   Reason = "duplicate_id"
	ReasonFetchFailed   Reason = "fetch_failed"
	ReasonNoFingerprint Reason = "no_fingerprint"
	ReasonNoLabel       Reason = "no_label"
	ReasonLabelRejected Reason = "label_rejected"

	// quality path only
	ReasonUtility     Reason = "utility"
	ReasonScoreFailed Reason = "score_failed"
)

// Outcome is the decision made for one asset
type Outcome struct {
	AssetID     string `json:"asset_id"`
	Kept        bool   `json:"kept"`
	Reason      Reason `json:"reason"`
	Label       string `json:"label,omitempty"`
	DuplicateOf string `json:"duplicate_of,omitempty"`
}

// Report counts outcomes per reason
type Report map[Reason]int

// Summarize builds a report from outcomes
func Summarize(outcomes []Outcome) Report {
	r := make(Report)
	for _, o := range outcomes {
		r[o.Reason]++
	}
	return r
}

// Merge adds other into r
func (r Report) Merge(other Report) {
	for k, v := range other {
		r[k] += v
	}
}

// Removed returns the number of assets not kept
func (r Report) Removed() int {
	n := 0
	for k, v := range r {
		if k != ReasonKept {
			n += v
		}
	}
	return n
}
