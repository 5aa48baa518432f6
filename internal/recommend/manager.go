// Package recommend runs the per-group recommendation pipeline: it owns the
// processing state of every location group, caches finished
// recommendations and publishes them to subscribers.
package recommend

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-curator/internal/cache"
	"github.com/kozaktomas/photo-curator/internal/constants"
	"github.com/kozaktomas/photo-curator/internal/dedup"
	"github.com/kozaktomas/photo-curator/internal/grouping"
	"github.com/kozaktomas/photo-curator/internal/labels"
	"github.com/kozaktomas/photo-curator/internal/library"
	"github.com/kozaktomas/photo-curator/internal/logging"
)

// State is the processing state of a group
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Recommendation is the published result of one group
type Recommendation struct {
	GroupID uuid.UUID       `json:"group_id"`
	Assets  []library.Asset `json:"assets"`
	Report  dedup.Report    `json:"report"`
}

// GroupProcessor computes the recommended subset of a group
type GroupProcessor interface {
	Recommend(ctx context.Context, group grouping.LocationGroup) (*dedup.Result, error)
}

// PolicySource returns the label policy in effect
type PolicySource interface {
	Policy(ctx context.Context) (labels.Policy, error)
}

// DedupProcessor recommends with the batch deduplicator under the current policy
type DedupProcessor struct {
	Dedup    *dedup.Deduplicator
	Policies PolicySource
}

// Recommend implements GroupProcessor
func (p *DedupProcessor) Recommend(ctx context.Context, group grouping.LocationGroup) (*dedup.Result, error) {
	policy, err := p.Policies.Policy(ctx)
	if err != nil {
		return nil, err
	}
	return p.Dedup.Run(ctx, group.Assets, policy)
}

// job is one submission of a group. A group resubmitted after cancellation
// gets a new job; the old one can no longer change state.
type job struct {
	state State
}

// Manager runs groups through a GroupProcessor with bounded concurrency.
// A group is processed at most once at a time and, once completed, never again.
type Manager struct {
	processor GroupProcessor
	sem       chan struct{}
	logger    *slog.Logger

	mu     sync.Mutex
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	jobs   map[uuid.UUID]*job

	results     *cache.Memo[uuid.UUID, Recommendation]
	broadcaster *Broadcaster[Recommendation]
	wg          sync.WaitGroup
}

// ManagerOptions configures a Manager
type ManagerOptions struct {
	MaxConcurrency int
	Logger         *slog.Logger
}

// NewManager creates a manager. Cancelling ctx cancels all work for good.
func NewManager(ctx context.Context, processor GroupProcessor, opts ManagerOptions) *Manager {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = constants.DefaultMaxConcurrency
	}
	logger := logging.OrDefault(opts.Logger)
	runCtx, cancel := context.WithCancel(ctx)
	return &Manager{
		processor:   processor,
		sem:         make(chan struct{}, opts.MaxConcurrency),
		logger:      logger,
		parent:      ctx,
		ctx:         runCtx,
		cancel:      cancel,
		jobs:        make(map[uuid.UUID]*job),
		results:     cache.New[uuid.UUID, Recommendation](),
		broadcaster: newBroadcaster[Recommendation](logger),
	}
}

// Process submits group. It returns false and does nothing when the group is
// already pending, running or completed.
func (m *Manager) Process(group grouping.LocationGroup) bool {
	m.mu.Lock()
	if j, ok := m.jobs[group.ID]; ok {
		switch j.state {
		case StatePending, StateRunning, StateCompleted:
			m.mu.Unlock()
			return false
		}
	}
	j := &job{state: StatePending}
	m.jobs[group.ID] = j
	ctx := m.ctx
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(ctx, j, group)
	return true
}

func (m *Manager) run(ctx context.Context, j *job, group grouping.LocationGroup) {
	defer m.wg.Done()

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		m.finish(j, group.ID, StateCancelled)
		return
	}
	defer func() { <-m.sem }()

	if !m.transition(j, group.ID, StatePending, StateRunning) {
		return
	}

	m.logger.Debug("processing group", "group", group.ID, "assets", group.Size())
	result, err := m.processor.Recommend(ctx, group)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			m.finish(j, group.ID, StateCancelled)
			return
		}
		m.logger.Error("group processing failed", "group", group.ID, "error", err)
		m.finish(j, group.ID, StateFailed)
		return
	}

	rec := Recommendation{GroupID: group.ID, Assets: result.Kept, Report: result.Report()}

	m.mu.Lock()
	if m.jobs[group.ID] != j || j.state != StateRunning || ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	j.state = StateCompleted
	m.results.Set(group.ID, rec)
	m.mu.Unlock()

	m.logger.Info("group recommended", "group", group.ID, "kept", len(rec.Assets), "removed", rec.Report.Removed())
	m.broadcaster.Send(rec)
}

// transition moves j from one state to another if it is still the current job
func (m *Manager) transition(j *job, id uuid.UUID, from, to State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobs[id] != j || j.state != from {
		return false
	}
	j.state = to
	return true
}

func (m *Manager) finish(j *job, id uuid.UUID, state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobs[id] != j {
		return
	}
	if j.state == StatePending || j.state == StateRunning {
		j.state = state
	}
}

// CancelAll cancels every pending and running group. Later submissions run
// in a fresh context.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
}

func (m *Manager) cancelLocked() {
	m.cancel()
	m.ctx, m.cancel = context.WithCancel(m.parent)
	for _, j := range m.jobs {
		if j.state == StatePending || j.state == StateRunning {
			j.state = StateCancelled
		}
	}
}

// Recommended returns the recommended assets of a completed group
func (m *Manager) Recommended(id uuid.UUID) ([]library.Asset, bool) {
	rec, ok := m.results.Get(id)
	if !ok {
		return nil, false
	}
	return rec.Assets, true
}

// Recommendation returns the full result of a completed group
func (m *Manager) Recommendation(id uuid.UUID) (Recommendation, bool) {
	return m.results.Get(id)
}

// IsComplete reports whether the group has a recommendation
func (m *Manager) IsComplete(id uuid.UUID) bool {
	state, _ := m.State(id)
	return state == StateCompleted
}

// State returns the state of a submitted group
func (m *Manager) State(id uuid.UUID) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return "", false
	}
	return j.state, true
}

// Subscribe returns a channel receiving every recommendation published from
// now on, and a function to unsubscribe.
func (m *Manager) Subscribe() (<-chan Recommendation, func()) {
	ch := m.broadcaster.AddListener()
	var once sync.Once
	return ch, func() {
		once.Do(func() { m.broadcaster.RemoveListener(ch) })
	}
}

// Subscribers returns the number of active subscriptions
func (m *Manager) Subscribers() int {
	return m.broadcaster.Listeners()
}

// Wait blocks until all submitted groups have finished
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close cancels all work, waits for it and releases the result cache
func (m *Manager) Close() {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()
	m.wg.Wait()
	m.broadcaster.closeAll()
	m.results.Close()
}
