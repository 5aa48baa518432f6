package recommend_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-curator/internal/cache"
	"github.com/kozaktomas/photo-curator/internal/dedup"
	"github.com/kozaktomas/photo-curator/internal/fingerprint"
	"github.com/kozaktomas/photo-curator/internal/grouping"
	"github.com/kozaktomas/photo-curator/internal/labels"
	"github.com/kozaktomas/photo-curator/internal/library"
	"github.com/kozaktomas/photo-curator/internal/mock"
	"github.com/kozaktomas/photo-curator/internal/recommend"
)

type limit int

func (l limit) MaxPhotoCount(ctx context.Context) (int, error) {
	return int(l), nil
}

var vienna = &library.Location{Lat: 48.21, Lng: 16.37}

func TestCurator_AnalyzeByDistance(t *testing.T) {
	lib := mock.NewMockLibrary(
		library.Asset{ID: "p1", Location: prague},
		library.Asset{ID: "v1", Location: vienna},
		library.Asset{ID: "p2", Location: prague},
		library.Asset{ID: "v2", Location: vienna},
		library.Asset{ID: "p3", Location: prague},
		library.Asset{ID: "nowhere"},
	)
	extractor := mock.NewMockExtractor(map[string]float32{"p1": 0, "p2": 1, "p3": 2, "v1": 0, "v2": 0.1})
	classifier := mock.NewMockClassifier(map[string][]labels.Prediction{})
	for id := range extractor.Positions {
		classifier.Predictions[id] = mock.Label("city")
	}

	labelMemo := cache.New[string, string]()
	printMemo := cache.New[string, fingerprint.Print]()
	defer labelMemo.Close()
	defer printMemo.Close()
	labeler := labels.NewLabeler(lib, classifier, labelMemo)
	deduper := dedup.NewDeduplicator(lib, extractor, labeler, dedup.NewPrintCache(printMemo, nil, extractor.Name(), nil), dedup.Options{})

	processor := &recommend.DedupProcessor{Dedup: deduper, Policies: staticPolicy{policy: labels.NewPolicy(nil, nil)}}
	manager := recommend.NewManager(context.Background(), processor, recommend.ManagerOptions{})
	defer manager.Close()
	curator := recommend.NewCurator(lib, manager, limit(0), recommend.CuratorOptions{})

	groups, err := curator.Analyze(context.Background(), grouping.ModeDistance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Prague is the largest group and is dropped
	if len(groups) != 1 || groups[0].Assets[0].ID != "v1" {
		t.Fatalf("expected only the Vienna group, got %+v", groups)
	}
	manager.Wait()

	assets, ok := manager.Recommended(groups[0].ID)
	if !ok {
		t.Fatal("expected a recommendation")
	}
	if len(assets) != 1 || assets[0].ID != "v1" {
		t.Errorf("expected [v1], got %+v", assets)
	}
	rec, _ := manager.Recommendation(groups[0].ID)
	if rec.Report[dedup.ReasonSimilar] != 1 {
		t.Errorf("expected one similar asset, got %v", rec.Report)
	}

	if got, ok := curator.Group(groups[0].ID); !ok || got.ID != groups[0].ID {
		t.Error("expected group lookup to succeed")
	}
	if submitted, found := curator.Process(groups[0].ID); submitted || !found {
		t.Errorf("expected completed group to be found but not resubmitted, got submitted=%v found=%v", submitted, found)
	}
}

func TestCurator_AnalyzeHonorsLimit(t *testing.T) {
	lib := mock.NewMockLibrary(
		library.Asset{ID: "p1", Location: prague},
		library.Asset{ID: "p2", Location: prague},
		library.Asset{ID: "v1", Location: vienna},
	)
	manager := recommend.NewManager(context.Background(), &fakeProcessor{}, recommend.ManagerOptions{})
	defer manager.Close()
	curator := recommend.NewCurator(lib, manager, limit(2), recommend.CuratorOptions{})

	groups, err := curator.Analyze(context.Background(), grouping.ModeDistance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// only Prague is listed, and as the largest group it is dropped
	if len(groups) != 0 {
		t.Errorf("expected no groups, got %d", len(groups))
	}
}

func TestCurator_AnalyzeByMoments(t *testing.T) {
	lib := mock.NewMockLibrary()
	lib.Moments = []library.Moment{
		{ID: "m1", Title: "Prague", Assets: located("a", "b", "c")},
		{ID: "m2", Title: "Vienna", Assets: []library.Asset{{ID: "d", Location: vienna}}},
	}
	manager := recommend.NewManager(context.Background(), &fakeProcessor{}, recommend.ManagerOptions{})
	defer manager.Close()
	curator := recommend.NewCurator(lib, manager, limit(0), recommend.CuratorOptions{})

	groups, err := curator.Analyze(context.Background(), grouping.ModeMoment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 1 || groups[0].Title != "Vienna" {
		t.Fatalf("expected the Vienna moment, got %+v", groups)
	}
	manager.Wait()
	if !manager.IsComplete(groups[0].ID) {
		t.Error("expected submitted group to complete")
	}
	if len(curator.Groups()) != 1 {
		t.Errorf("expected 1 current group, got %d", len(curator.Groups()))
	}
}

func TestCurator_ListErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"unauthorized is an empty pass", library.ErrUnauthorized, false},
		{"other failures surface", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := mock.NewMockLibrary()
			lib.ListError = tt.err
			manager := recommend.NewManager(context.Background(), &fakeProcessor{}, recommend.ManagerOptions{})
			defer manager.Close()

			groups, err := recommend.NewCurator(lib, manager, limit(0), recommend.CuratorOptions{}).Analyze(context.Background(), grouping.ModeDistance)
			if tt.wantErr {
				if !errors.Is(err, tt.err) {
					t.Errorf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil || len(groups) != 0 {
				t.Errorf("expected empty pass, got %d groups and %v", len(groups), err)
			}
		})
	}
}

// spread returns n assets more than 100 km apart, so every asset is its own group
func spread(n int) []library.Asset {
	assets := make([]library.Asset, n)
	for i := range assets {
		assets[i] = library.Asset{ID: fmt.Sprintf("a%d", i), Location: &library.Location{Lat: float64(i%80) - 40, Lng: float64(i/80) * 2}}
	}
	return assets
}

func TestCurator_NewPassCancelsPreviousSubmissions(t *testing.T) {
	lib := mock.NewMockLibrary(spread(400)...)
	p := &fakeProcessor{gate: make(chan struct{}), started: make(chan uuid.UUID, 1000)}
	manager := recommend.NewManager(context.Background(), p, recommend.ManagerOptions{MaxConcurrency: 4})
	defer manager.Close()
	curator := recommend.NewCurator(lib, manager, limit(0), recommend.CuratorOptions{})

	type result struct {
		groups []grouping.LocationGroup
		err    error
	}
	first := make(chan result, 1)
	go func() {
		groups, err := curator.Analyze(context.Background(), grouping.ModeDistance)
		first <- result{groups, err}
	}()

	// start the second pass while the first one is still submitting
	waitStarted(t, p.started)
	if _, err := curator.Analyze(context.Background(), grouping.ModeDistance); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := <-first
	if res.err != nil {
		t.Fatalf("unexpected error from first pass: %v", res.err)
	}
	for _, g := range res.groups {
		if state, ok := manager.State(g.ID); ok && state != recommend.StateCancelled {
			t.Fatalf("expected groups of the superseded pass to be cancelled, got %s for %s", state, g.ID)
		}
	}
}

func TestCurator_NewPassKeepsEarlierRecommendations(t *testing.T) {
	lib := mock.NewMockLibrary(
		library.Asset{ID: "p1", Location: prague},
		library.Asset{ID: "p2", Location: prague},
		library.Asset{ID: "v1", Location: vienna},
	)
	manager := recommend.NewManager(context.Background(), &fakeProcessor{}, recommend.ManagerOptions{})
	defer manager.Close()
	curator := recommend.NewCurator(lib, manager, limit(0), recommend.CuratorOptions{})

	first, err := curator.Analyze(context.Background(), grouping.ModeDistance)
	if err != nil || len(first) != 1 {
		t.Fatalf("expected one group, got %d and %v", len(first), err)
	}
	manager.Wait()

	if _, err := curator.Analyze(context.Background(), grouping.ModeDistance); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	manager.Wait()

	if _, ok := manager.Recommended(first[0].ID); !ok {
		t.Error("expected the recommendation of the earlier pass to stay cached")
	}
}
