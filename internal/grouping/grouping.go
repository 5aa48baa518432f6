// Package grouping partitions assets into location groups, either by
// distance from each group's first asset or by library moments.
package grouping

import (
	"math"
	"slices"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-curator/internal/constants"
	"github.com/kozaktomas/photo-curator/internal/library"
)

// Mode selects how assets are grouped.
type Mode string

const (
	ModeDistance Mode = "distance"
	ModeMoment   Mode = "moment"
)

// ParseMode returns the mode for name, defaulting to distance.
func ParseMode(name string) (Mode, bool) {
	switch Mode(name) {
	case ModeDistance, "":
		return ModeDistance, true
	case ModeMoment:
		return ModeMoment, true
	default:
		return ModeDistance, false
	}
}

// LocationGroup is an ordered set of assets taken near each other.
// Groups are never mutated after creation.
type LocationGroup struct {
	ID       uuid.UUID        `json:"id"`
	Title    string           `json:"title,omitempty"`
	Location library.Location `json:"location"`
	Assets   []library.Asset  `json:"assets"`
}

// Size returns the number of assets in the group.
func (g *LocationGroup) Size() int {
	return len(g.Assets)
}

// Preview returns up to n leading assets. A negative n returns none.
func (g *LocationGroup) Preview(n int) []library.Asset {
	n = max(0, min(n, len(g.Assets)))
	return g.Assets[:n]
}

func newGroup(title string, first library.Asset) LocationGroup {
	return LocationGroup{
		ID:       uuid.New(),
		Title:    title,
		Location: *first.Location,
		Assets:   []library.Asset{first},
	}
}

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b library.Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * constants.EarthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// ByDistance assigns each located asset to the first group whose first asset
// is closer than thresholdKM, or starts a new group. Assets without a
// location are skipped. Group order follows asset order.
//
// Membership is decided against the first asset only, so two assets within
// the threshold of each other can still land in different groups.
func ByDistance(assets []library.Asset, thresholdKM float64) []LocationGroup {
	var groups []LocationGroup
	for _, asset := range assets {
		if !asset.HasLocation() {
			continue
		}
		placed := false
		for i := range groups {
			if Haversine(groups[i].Location, *asset.Location) < thresholdKM {
				groups[i].Assets = append(groups[i].Assets, asset)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, newGroup("", asset))
		}
	}
	return groups
}

// ByMoments builds one group per moment from its located assets. Moments
// without any located asset are skipped. Groups are ordered by the taken
// date of their first asset, newest first.
func ByMoments(moments []library.Moment) []LocationGroup {
	return newestFirst(fromMoments(moments))
}

func fromMoments(moments []library.Moment) []LocationGroup {
	var groups []LocationGroup
	for _, m := range moments {
		var located []library.Asset
		for _, a := range m.Assets {
			if a.HasLocation() {
				located = append(located, a)
			}
		}
		if len(located) == 0 {
			continue
		}
		g := newGroup(m.Title, located[0])
		g.Assets = located
		groups = append(groups, g)
	}
	return groups
}

func newestFirst(groups []LocationGroup) []LocationGroup {
	slices.SortStableFunc(groups, func(a, b LocationGroup) int {
		return b.Assets[0].TakenAt.Compare(a.Assets[0].TakenAt)
	})
	return groups
}

// DropLargest removes the single largest group. When several groups share
// the maximum size, the first one is removed. The input slice is not modified.
func DropLargest(groups []LocationGroup) []LocationGroup {
	if len(groups) == 0 {
		return groups
	}
	largest := 0
	for i := range groups {
		if groups[i].Size() > groups[largest].Size() {
			largest = i
		}
	}
	out := make([]LocationGroup, 0, len(groups)-1)
	out = append(out, groups[:largest]...)
	return append(out, groups[largest+1:]...)
}

// PartitionByDistance groups by distance and drops the largest group,
// which is usually the user's home.
func PartitionByDistance(assets []library.Asset, thresholdKM float64) []LocationGroup {
	return DropLargest(ByDistance(assets, thresholdKM))
}

// PartitionByMoments groups by moments and drops the largest group. The
// largest group is chosen in moment order, before sorting.
func PartitionByMoments(moments []library.Moment) []LocationGroup {
	return newestFirst(DropLargest(fromMoments(moments)))
}
