package search

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-curator/internal/dedup"
	"github.com/kozaktomas/photo-curator/internal/grouping"
	"github.com/kozaktomas/photo-curator/internal/library"
	"github.com/kozaktomas/photo-curator/internal/recommend"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   []byte
}

type mockCluster struct {
	mu       sync.Mutex
	requests []recordedRequest
	existing map[string]bool
	bulkBody string
}

func (c *mockCluster) find(method, prefix string) []recordedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []recordedRequest
	for _, r := range c.requests {
		if r.Method == method && strings.HasPrefix(r.Path, prefix) {
			out = append(out, r)
		}
	}
	return out
}

func setupMockCluster(t *testing.T) (*mockCluster, *Indexer) {
	t.Helper()
	cluster := &mockCluster{existing: map[string]bool{}, bulkBody: `{"errors":false,"items":[]}`}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cluster.mu.Lock()
		cluster.requests = append(cluster.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: body})
		cluster.mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodHead:
			if cluster.existing[strings.TrimPrefix(r.URL.Path, "/")] {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
		case r.URL.Path == "/_bulk":
			w.Write([]byte(cluster.bulkBody))
		case strings.Contains(r.URL.Path, "/_doc/"):
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"result":"created"}`))
		default:
			w.Write([]byte(`{"acknowledged":true}`))
		}
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	ix := NewIndexer(client, "photos", nil)
	ix.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return cluster, ix
}

func TestEnsureIndices_CreatesMissing(t *testing.T) {
	cluster, ix := setupMockCluster(t)
	cluster.existing["photos-groups"] = true

	if err := ix.EnsureIndices(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	created := cluster.find(http.MethodPut, "/")
	if len(created) != 1 || created[0].Path != "/photos" {
		t.Fatalf("expected only /photos to be created, got %+v", created)
	}
	if !bytes.Contains(created[0].Body, []byte(`"geo_point"`)) {
		t.Errorf("expected photo mapping in create body, got %s", created[0].Body)
	}
}

func TestIndexPhotos(t *testing.T) {
	cluster, ix := setupMockCluster(t)
	groupID := uuid.New()
	photos := []recommend.ScoredPhoto{
		{AssetID: "a", Score: 8.5, Label: "beach/sea", Location: &library.Location{Lat: 50.1, Lng: 14.4}, LocationName: "Prague", GroupID: groupID},
		{AssetID: "b", Score: 6, Label: "forest", GroupID: groupID},
	}

	if err := ix.IndexPhotos(context.Background(), photos); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bulk := cluster.find(http.MethodPost, "/_bulk")
	if len(bulk) != 1 {
		t.Fatalf("expected 1 bulk request, got %d", len(bulk))
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(bulk[0].Body))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 4 {
		t.Fatalf("expected 4 ndjson lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"_id":"a"`) || !strings.Contains(lines[0], `"_index":"photos"`) {
		t.Errorf("unexpected meta line: %s", lines[0])
	}

	var doc photoDocument
	if err := json.Unmarshal([]byte(lines[1]), &doc); err != nil {
		t.Fatalf("failed to decode document: %v", err)
	}
	if doc.Location == nil || doc.Location.Lon != 14.4 {
		t.Errorf("expected geo point with lon 14.4, got %+v", doc.Location)
	}
	if len(doc.Labels) != 2 || doc.Labels[0] != "beach" {
		t.Errorf("expected split labels, got %v", doc.Labels)
	}
	if doc.GroupID != groupID.String() {
		t.Errorf("expected group %s, got %s", groupID, doc.GroupID)
	}
	if !strings.Contains(lines[3], `"labels":["forest"]`) || strings.Contains(lines[3], `"location"`) {
		t.Errorf("unexpected second document: %s", lines[3])
	}
}

func TestIndexPhotos_Empty(t *testing.T) {
	cluster, ix := setupMockCluster(t)
	if err := ix.IndexPhotos(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(cluster.find(http.MethodPost, "/")); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestIndexPhotos_ItemErrors(t *testing.T) {
	cluster, ix := setupMockCluster(t)
	cluster.bulkBody = `{"errors":true,"items":[
		{"index":{"status":201}},
		{"index":{"status":400,"error":{"type":"mapper_parsing_exception","reason":"bad"}}}
	]}`

	err := ix.IndexPhotos(context.Background(), []recommend.ScoredPhoto{{AssetID: "a"}, {AssetID: "b"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("expected failure count in error, got %v", err)
	}
}

func TestIndexRecommendation(t *testing.T) {
	cluster, ix := setupMockCluster(t)
	rec := recommend.Recommendation{
		GroupID: uuid.New(),
		Assets:  []library.Asset{{ID: "a"}, {ID: "c"}},
		Report:  dedup.Report{dedup.ReasonKept: 2, dedup.ReasonSimilar: 1},
	}

	if err := ix.IndexRecommendation(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reqs := cluster.find(http.MethodPut, "/photos-groups/_doc/")
	if len(reqs) != 1 {
		t.Fatalf("expected 1 document request, got %d", len(reqs))
	}
	if !strings.HasSuffix(reqs[0].Path, rec.GroupID.String()) {
		t.Errorf("expected document ID %s, got path %s", rec.GroupID, reqs[0].Path)
	}

	var doc groupDocument
	if err := json.Unmarshal(reqs[0].Body, &doc); err != nil {
		t.Fatalf("failed to decode document: %v", err)
	}
	if len(doc.AssetIDs) != 2 || doc.AssetIDs[1] != "c" {
		t.Errorf("expected asset IDs [a c], got %v", doc.AssetIDs)
	}
	if doc.Report["similar"] != 1 {
		t.Errorf("expected report to carry similar=1, got %v", doc.Report)
	}
	if !doc.IndexedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected indexed_at %v", doc.IndexedAt)
	}
}

type keepAll struct{}

func (keepAll) Recommend(ctx context.Context, group grouping.LocationGroup) (*dedup.Result, error) {
	return &dedup.Result{Kept: group.Assets}, nil
}

func TestFollow(t *testing.T) {
	cluster, ix := setupMockCluster(t)
	manager := recommend.NewManager(context.Background(), keepAll{}, recommend.ManagerOptions{})
	defer manager.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ix.Follow(ctx, manager)
		close(done)
	}()

	// Subscribe happens inside Follow; wait for it before submitting
	deadline := time.Now().Add(2 * time.Second)
	for manager.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for subscription")
		}
		time.Sleep(5 * time.Millisecond)
	}

	manager.Process(grouping.LocationGroup{ID: uuid.New(), Assets: []library.Asset{{ID: "a"}}})
	for len(cluster.find(http.MethodPut, "/photos-groups/_doc/")) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for indexed recommendation")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	<-done
}
