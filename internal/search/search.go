// Package search pushes ranked photos and group recommendations into
// Elasticsearch so they can be browsed with Kibana or queried later.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kozaktomas/photo-curator/internal/labels"
	"github.com/kozaktomas/photo-curator/internal/logging"
	"github.com/kozaktomas/photo-curator/internal/recommend"
)

const photoMapping = `{
  "mappings": {
    "properties": {
      "asset_id":      {"type": "keyword"},
      "score":         {"type": "float"},
      "labels":        {"type": "keyword"},
      "location":      {"type": "geo_point"},
      "location_name": {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "taken_at":      {"type": "date"},
      "group_id":      {"type": "keyword"}
    }
  }
}`

const groupMapping = `{
  "mappings": {
    "properties": {
      "group_id":   {"type": "keyword"},
      "asset_ids":  {"type": "keyword"},
      "report":     {"type": "object"},
      "indexed_at": {"type": "date"}
    }
  }
}`

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type photoDocument struct {
	AssetID      string    `json:"asset_id"`
	Score        float64   `json:"score"`
	Labels       []string  `json:"labels"`
	Location     *geoPoint `json:"location,omitempty"`
	LocationName string    `json:"location_name,omitempty"`
	TakenAt      time.Time `json:"taken_at"`
	GroupID      string    `json:"group_id"`
}

type groupDocument struct {
	GroupID   string         `json:"group_id"`
	AssetIDs  []string       `json:"asset_ids"`
	Report    map[string]int `json:"report"`
	IndexedAt time.Time      `json:"indexed_at"`
}

func toPhotoDocument(p recommend.ScoredPhoto) photoDocument {
	doc := photoDocument{
		AssetID:      p.AssetID,
		Score:        p.Score,
		Labels:       labels.Split(p.Label),
		LocationName: p.LocationName,
		TakenAt:      p.TakenAt,
		GroupID:      p.GroupID.String(),
	}
	if p.Location != nil {
		doc.Location = &geoPoint{Lat: p.Location.Lat, Lon: p.Location.Lng}
	}
	return doc
}

// Indexer writes documents into two indices: <prefix> for scored photos
// and <prefix>-groups for recommendations.
type Indexer struct {
	client *elasticsearch.Client
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// NewClient creates an Elasticsearch client for a single node
func NewClient(url string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return client, nil
}

// NewIndexer creates an indexer writing under the index prefix
func NewIndexer(client *elasticsearch.Client, prefix string, logger *slog.Logger) *Indexer {
	return &Indexer{client: client, prefix: prefix, logger: logging.OrDefault(logger), now: time.Now}
}

// PhotoIndex is the name of the scored photo index
func (ix *Indexer) PhotoIndex() string {
	return ix.prefix
}

// GroupIndex is the name of the recommendation index
func (ix *Indexer) GroupIndex() string {
	return ix.prefix + "-groups"
}

// EnsureIndices creates both indices with their mappings if they do not exist
func (ix *Indexer) EnsureIndices(ctx context.Context) error {
	if err := ix.ensureIndex(ctx, ix.PhotoIndex(), photoMapping); err != nil {
		return err
	}
	return ix.ensureIndex(ctx, ix.GroupIndex(), groupMapping)
}

func (ix *Indexer) ensureIndex(ctx context.Context, index, mapping string) error {
	res, err := ix.client.Indices.Exists([]string{index}, ix.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = ix.client.Indices.Create(
		index,
		ix.client.Indices.Create.WithBody(strings.NewReader(mapping)),
		ix.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	ix.logger.Info("created index", "index", index)
	return nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// IndexPhotos bulk indexes photos keyed by asset ID. Photos already in the
// index are replaced.
func (ix *Indexer) IndexPhotos(ctx context.Context, photos []recommend.ScoredPhoto) error {
	if len(photos) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, p := range photos {
		meta := map[string]any{
			"index": map[string]any{"_index": ix.PhotoIndex(), "_id": p.AssetID},
		}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("failed to encode meta: %w", err)
		}
		if err := enc.Encode(toPhotoDocument(p)); err != nil {
			return fmt.Errorf("failed to encode photo: %w", err)
		}
	}

	res, err := ix.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		ix.client.Bulk.WithContext(ctx),
		ix.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("bulk index", res)
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if parsed.Errors {
		failed := 0
		for _, item := range parsed.Items {
			for _, result := range item {
				if result.Status >= 300 {
					failed++
					ix.logger.Warn("failed to index photo", "type", result.Error.Type, "reason", result.Error.Reason)
				}
			}
		}
		return fmt.Errorf("bulk index: %d of %d photos failed", failed, len(photos))
	}
	ix.logger.Debug("indexed photos", "count", len(photos))
	return nil
}

// IndexRecommendation indexes one group recommendation keyed by group ID
func (ix *Indexer) IndexRecommendation(ctx context.Context, rec recommend.Recommendation) error {
	doc := groupDocument{
		GroupID:   rec.GroupID.String(),
		AssetIDs:  make([]string, len(rec.Assets)),
		Report:    make(map[string]int, len(rec.Report)),
		IndexedAt: ix.now().UTC(),
	}
	for i, a := range rec.Assets {
		doc.AssetIDs[i] = a.ID
	}
	for reason, n := range rec.Report {
		doc.Report[string(reason)] = n
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      ix.GroupIndex(),
		DocumentID: doc.GroupID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("failed to index recommendation: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index recommendation", res)
	}
	return nil
}

// Follow indexes every recommendation published by manager until ctx is
// done. Indexing failures are logged and do not stop the loop.
func (ix *Indexer) Follow(ctx context.Context, manager *recommend.Manager) {
	events, unsubscribe := manager.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-events:
			if !ok {
				return
			}
			if err := ix.IndexRecommendation(ctx, rec); err != nil {
				ix.logger.Warn("failed to index recommendation", "group", rec.GroupID, "error", err)
			}
		}
	}
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("%s: status %d: %s", op, res.StatusCode, strings.TrimSpace(string(body)))
}
