// Package library defines the photo library abstraction consumed by the
// grouping, dedup and scoring pipeline.
package library

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnauthorized is returned when the library denies access.
var ErrUnauthorized = errors.New("library access not authorized")

// Location is a WGS84 coordinate.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Key returns the cache key used for place-name lookups.
func (l Location) Key() string {
	return fmt.Sprintf("%g,%g", l.Lat, l.Lng)
}

// Asset is a single photo in the library.
type Asset struct {
	ID       string    `json:"id"`
	Title    string    `json:"title,omitempty"`
	TakenAt  time.Time `json:"taken_at"`
	Hash     string    `json:"-"`
	Location *Location `json:"location,omitempty"`
}

// HasLocation reports whether the asset carries geolocation.
func (a Asset) HasLocation() bool {
	return a.Location != nil
}

// Moment is a library-provided cluster of assets.
type Moment struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Assets []Asset `json:"assets"`
}

// Filter narrows a listing. Limit 0 means no limit.
type Filter struct {
	Limit int
}

// Library is the read-only photo library accessor.
type Library interface {
	// ListAssets returns image assets, newest first.
	ListAssets(ctx context.Context, filter Filter) ([]Asset, error)
	// ListMoments returns library moments with their assets.
	ListMoments(ctx context.Context, filter Filter) ([]Moment, error)
	// FetchPixels returns an encoded image of at least size pixels on the short side when available.
	FetchPixels(ctx context.Context, assetID string, size int) ([]byte, error)
}
