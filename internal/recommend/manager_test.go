package recommend_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-curator/internal/dedup"
	"github.com/kozaktomas/photo-curator/internal/grouping"
	"github.com/kozaktomas/photo-curator/internal/library"
	"github.com/kozaktomas/photo-curator/internal/recommend"
)

// fakeProcessor keeps every asset. When gate is set it blocks until the gate
// closes or ctx is done.
type fakeProcessor struct {
	gate    chan struct{}
	started chan uuid.UUID
	err     error

	calls   atomic.Int32
	running atomic.Int32
	peak    atomic.Int32
}

func (p *fakeProcessor) Recommend(ctx context.Context, group grouping.LocationGroup) (*dedup.Result, error) {
	p.calls.Add(1)
	n := p.running.Add(1)
	defer p.running.Add(-1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	if p.started != nil {
		p.started <- group.ID
	}
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}

	result := &dedup.Result{Kept: group.Assets}
	for _, a := range group.Assets {
		result.Outcomes = append(result.Outcomes, dedup.Outcome{AssetID: a.ID, Kept: true, Reason: dedup.ReasonKept})
	}
	return result, nil
}

func newGroup(ids ...string) grouping.LocationGroup {
	g := grouping.LocationGroup{ID: uuid.New()}
	for _, id := range ids {
		g.Assets = append(g.Assets, library.Asset{ID: id, Location: &library.Location{Lat: 50, Lng: 14}})
	}
	return g
}

func newManager(t *testing.T, p recommend.GroupProcessor, concurrency int) *recommend.Manager {
	t.Helper()
	m := recommend.NewManager(context.Background(), p, recommend.ManagerOptions{MaxConcurrency: concurrency})
	t.Cleanup(m.Close)
	return m
}

func waitStarted(t *testing.T, ch <-chan uuid.UUID) uuid.UUID {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("processor did not start")
		return uuid.Nil
	}
}

func TestManager_ProcessIsSingleFlight(t *testing.T) {
	p := &fakeProcessor{gate: make(chan struct{}), started: make(chan uuid.UUID, 1)}
	m := newManager(t, p, 2)
	g := newGroup("a", "b")

	if !m.Process(g) {
		t.Fatal("expected first Process to submit")
	}
	waitStarted(t, p.started)

	if m.Process(g) {
		t.Error("expected Process of a running group to be refused")
	}
	if state, _ := m.State(g.ID); state != recommend.StateRunning {
		t.Errorf("expected running, got %s", state)
	}
	if _, ok := m.Recommended(g.ID); ok {
		t.Error("expected no recommendation while running")
	}

	close(p.gate)
	m.Wait()

	if !m.IsComplete(g.ID) {
		t.Fatal("expected group to be complete")
	}
	assets, ok := m.Recommended(g.ID)
	if !ok || len(assets) != 2 {
		t.Errorf("expected 2 recommended assets, got %d (ok=%v)", len(assets), ok)
	}
	if m.Process(g) {
		t.Error("expected completed group not to be reprocessed")
	}
	if p.calls.Load() != 1 {
		t.Errorf("expected 1 processor call, got %d", p.calls.Load())
	}
}

func TestManager_CancelAllLeavesNoResult(t *testing.T) {
	p := &fakeProcessor{gate: make(chan struct{}), started: make(chan uuid.UUID, 1)}
	m := newManager(t, p, 1)
	events, unsubscribe := m.Subscribe()
	defer unsubscribe()

	running := newGroup("a")
	queued := newGroup("b")
	m.Process(running)
	waitStarted(t, p.started)
	m.Process(queued)

	m.CancelAll()
	m.Wait()

	for _, g := range []grouping.LocationGroup{running, queued} {
		if state, _ := m.State(g.ID); state != recommend.StateCancelled {
			t.Errorf("expected cancelled, got %s", state)
		}
		if _, ok := m.Recommended(g.ID); ok {
			t.Error("expected no recommendation after cancel")
		}
	}
	select {
	case rec := <-events:
		t.Errorf("expected nothing published, got %v", rec.GroupID)
	default:
	}

	// cancelled groups can run again in the fresh context
	close(p.gate)
	if !m.Process(running) {
		t.Fatal("expected cancelled group to be resubmitted")
	}
	waitStarted(t, p.started)
	m.Wait()
	if !m.IsComplete(running.ID) {
		t.Error("expected resubmitted group to complete")
	}
}

func TestManager_PublishesOncePerGroup(t *testing.T) {
	m := newManager(t, &fakeProcessor{}, 4)
	events, unsubscribe := m.Subscribe()
	defer unsubscribe()

	groups := []grouping.LocationGroup{newGroup("a"), newGroup("b"), newGroup("c")}
	for _, g := range groups {
		m.Process(g)
	}
	m.Wait()
	for _, g := range groups {
		m.Process(g)
	}
	m.Wait()

	seen := make(map[uuid.UUID]int)
	for done := false; !done; {
		select {
		case rec := <-events:
			seen[rec.GroupID]++
			if rec.Report[dedup.ReasonKept] != 1 {
				t.Errorf("expected report with 1 kept, got %v", rec.Report)
			}
		default:
			done = true
		}
	}
	for _, g := range groups {
		if seen[g.ID] != 1 {
			t.Errorf("expected group %s published once, got %d", g.ID, seen[g.ID])
		}
	}
}

func TestManager_BoundsConcurrency(t *testing.T) {
	p := &fakeProcessor{gate: make(chan struct{}), started: make(chan uuid.UUID, 10)}
	m := newManager(t, p, 2)

	for range 6 {
		m.Process(newGroup("a"))
	}
	waitStarted(t, p.started)
	waitStarted(t, p.started)
	close(p.gate)
	m.Wait()

	if p.peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent groups, got %d", p.peak.Load())
	}
	if p.calls.Load() != 6 {
		t.Errorf("expected 6 calls, got %d", p.calls.Load())
	}
}

func TestManager_FailedGroup(t *testing.T) {
	m := newManager(t, &fakeProcessor{err: errors.New("store down")}, 1)
	g := newGroup("a")

	m.Process(g)
	m.Wait()

	if state, _ := m.State(g.ID); state != recommend.StateFailed {
		t.Errorf("expected failed, got %s", state)
	}
	if _, ok := m.Recommended(g.ID); ok {
		t.Error("expected no recommendation for failed group")
	}
}

func TestManager_CancelAllKeepsResults(t *testing.T) {
	m := newManager(t, &fakeProcessor{}, 1)
	g := newGroup("a")
	m.Process(g)
	m.Wait()

	m.CancelAll()

	if state, _ := m.State(g.ID); state != recommend.StateCompleted {
		t.Errorf("expected completed group to stay completed, got %s", state)
	}
	if assets, ok := m.Recommended(g.ID); !ok || len(assets) != 1 {
		t.Errorf("expected cached recommendation to survive, got %v %v", assets, ok)
	}
}

func TestManager_UnsubscribeIsIdempotent(t *testing.T) {
	m := newManager(t, &fakeProcessor{}, 1)
	events, unsubscribe := m.Subscribe()
	unsubscribe()
	unsubscribe()

	if _, ok := <-events; ok {
		t.Error("expected channel to be closed")
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, unsub := m.Subscribe()
			unsub()
		}()
	}
	wg.Wait()
}
