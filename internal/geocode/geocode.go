// Package geocode resolves coordinates to human readable place names.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kozaktomas/photo-curator/internal/cache"
	"github.com/kozaktomas/photo-curator/internal/library"
	"github.com/kozaktomas/photo-curator/internal/logging"
)

// UnknownLocation is returned when a place cannot be resolved
const UnknownLocation = "Unknown Location"

const defaultNominatimURL = "https://nominatim.openstreetmap.org"

// Geocoder resolves a location to a place name
type Geocoder interface {
	Reverse(ctx context.Context, loc library.Location) (string, error)
}

// Nominatim is a client of the OpenStreetMap Nominatim reverse API
type Nominatim struct {
	baseURL   string
	userAgent string
	language  string
	client    *http.Client
}

// NewNominatim creates a Nominatim client. Nominatim requires an
// identifying User-Agent.
func NewNominatim(baseURL, userAgent, language string) *Nominatim {
	if baseURL == "" {
		baseURL = defaultNominatimURL
	}
	return &Nominatim{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: userAgent,
		language:  language,
		client:    &http.Client{},
	}
}

type nominatimAddress struct {
	Country  string `json:"country"`
	State    string `json:"state"`
	City     string `json:"city"`
	Town     string `json:"town"`
	Village  string `json:"village"`
	Suburb   string `json:"suburb"`
	District string `json:"city_district"`
}

type nominatimResponse struct {
	Address nominatimAddress `json:"address"`
	Error   string           `json:"error"`
}

// placeName joins the address from country down to neighborhood
func (a nominatimAddress) placeName() string {
	locality := firstNonEmpty(a.City, a.Town, a.Village)
	subLocality := firstNonEmpty(a.Suburb, a.District)

	var parts []string
	for _, p := range []string{a.Country, a.State, locality, subLocality} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Reverse implements Geocoder
func (n *Nominatim) Reverse(ctx context.Context, loc library.Location) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(loc.Lng, 'f', -1, 64))
	q.Set("zoom", "14")
	if n.language != "" {
		q.Set("accept-language", n.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var out nominatimResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("geocoder: %s", out.Error)
	}

	name := out.Address.placeName()
	if name == "" {
		return "", fmt.Errorf("no address for %s", loc.Key())
	}
	return name, nil
}

// Cached memoizes successful lookups by coordinate and never fails:
// unresolvable places come back as UnknownLocation.
type Cached struct {
	geocoder Geocoder
	memo     *cache.Memo[string, string]
	logger   *slog.Logger
}

// NewCached wraps geocoder with a place name cache. The caller owns memo.
func NewCached(geocoder Geocoder, memo *cache.Memo[string, string], logger *slog.Logger) *Cached {
	return &Cached{geocoder: geocoder, memo: memo, logger: logging.OrDefault(logger)}
}

// ClearCache forgets every cached place name
func (c *Cached) ClearCache() {
	c.memo.Clear()
}

// PlaceName returns the cached or freshly resolved name of loc
func (c *Cached) PlaceName(ctx context.Context, loc library.Location) string {
	key := loc.Key()
	if name, ok := c.memo.Get(key); ok {
		return name
	}

	name, err := c.geocoder.Reverse(ctx, loc)
	if err != nil {
		c.logger.Debug("reverse geocoding failed", "location", key, "error", err)
		return UnknownLocation
	}
	if name == "" {
		return UnknownLocation
	}
	c.memo.Set(key, name)
	return name
}
