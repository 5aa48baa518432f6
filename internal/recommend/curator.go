package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-curator/internal/constants"
	"github.com/kozaktomas/photo-curator/internal/grouping"
	"github.com/kozaktomas/photo-curator/internal/library"
	"github.com/kozaktomas/photo-curator/internal/logging"
)

// MaxCountSource returns the configured asset limit, 0 meaning unlimited
type MaxCountSource interface {
	MaxPhotoCount(ctx context.Context) (int, error)
}

// Curator drives analysis passes: list, partition, submit
type Curator struct {
	lib         library.Library
	manager     *Manager
	limits      MaxCountSource
	thresholdKM float64
	logger      *slog.Logger

	mu     sync.Mutex
	pass   uint64
	cancel context.CancelFunc
	groups []grouping.LocationGroup
}

// CuratorOptions configures a Curator
type CuratorOptions struct {
	ThresholdKM float64
	Logger      *slog.Logger
}

// NewCurator creates a curator submitting to manager
func NewCurator(lib library.Library, manager *Manager, limits MaxCountSource, opts CuratorOptions) *Curator {
	if opts.ThresholdKM <= 0 {
		opts.ThresholdKM = constants.DefaultGroupThresholdKM
	}
	return &Curator{
		lib:         lib,
		manager:     manager,
		limits:      limits,
		thresholdKM: opts.ThresholdKM,
		logger:      logging.OrDefault(opts.Logger),
	}
}

// Analyze starts a new pass, cancelling the previous one and all in-flight
// group work, and submits every group of the new partition. Recommendations
// of earlier passes stay cached. A library that denies access yields an
// empty pass.
func (c *Curator) Analyze(ctx context.Context, mode grouping.Mode) ([]grouping.LocationGroup, error) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.pass++
	pass := c.pass
	c.groups = nil
	c.mu.Unlock()

	c.manager.CancelAll()

	limit, err := c.limits.MaxPhotoCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("read max photo count: %w", err)
	}

	groups, err := c.partition(ctx, mode, library.Filter{Limit: limit})
	if errors.Is(err, library.ErrUnauthorized) {
		// nothing is visible, so there is nothing to recommend
		c.logger.Warn("library denied access, analysis is empty", "error", err)
		groups, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	// The pass check and the submissions happen under one lock, so a newer
	// pass cancels either none or all of them.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pass != pass {
		// a newer pass started while we were listing
		return nil, context.Canceled
	}
	c.groups = groups

	submitted := 0
	for _, g := range groups {
		if c.manager.Process(g) {
			submitted++
		}
	}
	c.logger.Info("analysis started", "mode", mode, "groups", len(groups), "submitted", submitted)
	return groups, nil
}

func (c *Curator) partition(ctx context.Context, mode grouping.Mode, filter library.Filter) ([]grouping.LocationGroup, error) {
	switch mode {
	case grouping.ModeMoment:
		moments, err := c.lib.ListMoments(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list moments: %w", err)
		}
		return grouping.PartitionByMoments(moments), nil
	default:
		assets, err := c.lib.ListAssets(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list assets: %w", err)
		}
		return grouping.PartitionByDistance(assets, c.thresholdKM), nil
	}
}

// Groups returns the groups of the current pass
func (c *Curator) Groups() []grouping.LocationGroup {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]grouping.LocationGroup(nil), c.groups...)
}

// Group looks up a group of the current pass
func (c *Curator) Group(id uuid.UUID) (grouping.LocationGroup, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range c.groups {
		if g.ID == id {
			return g, true
		}
	}
	return grouping.LocationGroup{}, false
}

// Process resubmits a group of the current pass
func (c *Curator) Process(id uuid.UUID) (submitted, found bool) {
	g, ok := c.Group(id)
	if !ok {
		return false, false
	}
	return c.manager.Process(g), true
}

// Manager returns the manager groups are submitted to
func (c *Curator) Manager() *Manager {
	return c.manager
}
