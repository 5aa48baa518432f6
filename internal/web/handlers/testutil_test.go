package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-curator/internal/dedup"
	"github.com/kozaktomas/photo-curator/internal/grouping"
	"github.com/kozaktomas/photo-curator/internal/library"
	"github.com/kozaktomas/photo-curator/internal/mock"
	"github.com/kozaktomas/photo-curator/internal/recommend"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var (
	prague = &library.Location{Lat: 50.08, Lng: 14.42}
	vienna = &library.Location{Lat: 48.21, Lng: 16.37}
)

// keepAll recommends every asset of a group
type keepAll struct{}

func (keepAll) Recommend(ctx context.Context, group grouping.LocationGroup) (*dedup.Result, error) {
	return &dedup.Result{Kept: group.Assets}, nil
}

// blocking holds every group until its context is cancelled
type blocking struct{}

func (blocking) Recommend(ctx context.Context, group grouping.LocationGroup) (*dedup.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// noLimit places no cap on analyzed photos
type noLimit struct{}

func (noLimit) MaxPhotoCount(ctx context.Context) (int, error) {
	return 0, nil
}

// newTestCurator creates a curator over lib processing groups with processor
func newTestCurator(t *testing.T, lib library.Library, processor recommend.GroupProcessor) *recommend.Curator {
	t.Helper()
	manager := recommend.NewManager(context.Background(), processor, recommend.ManagerOptions{Logger: discard})
	t.Cleanup(manager.Close)
	return recommend.NewCurator(lib, manager, noLimit{}, recommend.CuratorOptions{Logger: discard})
}

// twoCityLibrary holds a larger Prague group, dropped on analysis, and a Vienna pair
func twoCityLibrary() *mock.MockLibrary {
	return mock.NewMockLibrary(
		library.Asset{ID: "p1", Location: prague},
		library.Asset{ID: "p2", Location: prague},
		library.Asset{ID: "p3", Location: prague},
		library.Asset{ID: "v1", Location: vienna},
		library.Asset{ID: "v2", Location: vienna},
	)
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest creates a request carrying body as JSON
func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeBody decodes a recorded JSON response into v
func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", recorder.Body.String(), err)
	}
}
