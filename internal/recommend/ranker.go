package recommend

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-curator/internal/constants"
	"github.com/kozaktomas/photo-curator/internal/dedup"
	"github.com/kozaktomas/photo-curator/internal/fingerprint"
	"github.com/kozaktomas/photo-curator/internal/grouping"
	"github.com/kozaktomas/photo-curator/internal/labels"
	"github.com/kozaktomas/photo-curator/internal/library"
	"github.com/kozaktomas/photo-curator/internal/logging"
	"github.com/kozaktomas/photo-curator/internal/scoring"
)

// ScoredPhoto is a ranked photo of the quality path
type ScoredPhoto struct {
	AssetID      string            `json:"asset_id"`
	Score        float64           `json:"score"`
	Label        string            `json:"label"`
	Location     *library.Location `json:"location,omitempty"`
	LocationName string            `json:"location_name"`
	TakenAt      time.Time         `json:"taken_at"`
	GroupID      uuid.UUID         `json:"group_id"`
}

// PlaceNamer resolves a location to a display name; it never fails
type PlaceNamer interface {
	PlaceName(ctx context.Context, loc library.Location) string
}

// Ranking is the result of Best
type Ranking struct {
	Photos []ScoredPhoto `json:"photos"`
	Report dedup.Report  `json:"report"`
}

// Ranker finds the best photos across groups
type Ranker struct {
	lib       library.Library
	extractor fingerprint.Extractor
	labeler   *labels.Labeler
	policies  PolicySource
	scorer    scoring.Scorer
	places    PlaceNamer
	opts      RankerOptions
}

// RankerOptions configures a Ranker
type RankerOptions struct {
	Concurrency int
	Stream      dedup.StreamOptions
	ImageSize   int
	Logger      *slog.Logger
}

// NewRanker creates a ranker scoring with scorer
func NewRanker(lib library.Library, extractor fingerprint.Extractor, labeler *labels.Labeler, policies PolicySource, scorer scoring.Scorer, places PlaceNamer, opts RankerOptions) *Ranker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = constants.DefaultAssetConcurrency
	}
	if opts.ImageSize <= 0 {
		opts.ImageSize = constants.StreamImageSize
	}
	opts.Logger = logging.OrDefault(opts.Logger)
	if opts.Stream.Logger == nil {
		opts.Stream.Logger = opts.Logger
	}
	return &Ranker{
		lib:       lib,
		extractor: extractor,
		labeler:   labeler,
		policies:  policies,
		scorer:    scorer,
		places:    places,
		opts:      opts,
	}
}

type candidate struct {
	asset   library.Asset
	groupID uuid.UUID
}

// Best runs the quality path over groups: streaming dedup per group, label
// policy, scoring and place names. Photos are sorted by descending score.
func (r *Ranker) Best(ctx context.Context, groups []grouping.LocationGroup) (*Ranking, error) {
	policy, err := r.policies.Policy(ctx)
	if err != nil {
		return nil, err
	}

	report := make(dedup.Report)
	var candidates []candidate

	stream := dedup.NewStream(r.lib, r.extractor, r.opts.Stream)
	for _, g := range groups {
		kept, outcomes, err := stream.Filter(ctx, g.Assets)
		if err != nil {
			return nil, err
		}
		for _, o := range outcomes {
			if !o.Kept {
				report[o.Reason]++
			}
		}
		for _, a := range kept {
			candidates = append(candidates, candidate{asset: a, groupID: g.ID})
		}
	}

	scored, reasons, err := r.scoreAll(ctx, candidates, policy)
	if err != nil {
		return nil, err
	}
	for _, reason := range reasons {
		report[reason]++
	}

	scoring.SortByScore(scored)
	photos := make([]ScoredPhoto, len(scored))
	for i, s := range scored {
		photos[i] = s.Item
	}
	return &Ranking{Photos: photos, Report: report}, nil
}

// scoreAll scores candidates with a bounded pool. reasons holds one entry per
// candidate, in input order.
func (r *Ranker) scoreAll(ctx context.Context, candidates []candidate, policy labels.Policy) ([]scoring.Scored[ScoredPhoto], []dedup.Reason, error) {
	results := make([]*ScoredPhoto, len(candidates))
	reasons := make([]dedup.Reason, len(candidates))

	sem := make(chan struct{}, r.opts.Concurrency)
	var wg sync.WaitGroup

	for i, c := range candidates {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return nil, nil, ctx.Err()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], reasons[i] = r.scoreOne(ctx, c, policy)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var scored []scoring.Scored[ScoredPhoto]
	for _, p := range results {
		if p != nil {
			scored = append(scored, scoring.Scored[ScoredPhoto]{Item: *p, Score: p.Score})
		}
	}
	return scored, reasons, nil
}

func (r *Ranker) scoreOne(ctx context.Context, c candidate, policy labels.Policy) (*ScoredPhoto, dedup.Reason) {
	logger := r.opts.Logger.With("asset", c.asset.ID)

	data, err := r.lib.FetchPixels(ctx, c.asset.ID, r.opts.ImageSize)
	if err != nil {
		logger.Debug("failed to fetch image", "error", err)
		return nil, dedup.ReasonFetchFailed
	}

	label, err := r.labeler.LabelImage(ctx, c.asset.ID, data)
	if err != nil {
		if !errors.Is(err, labels.ErrNoLabel) {
			logger.Debug("failed to label", "error", err)
		}
		return nil, dedup.ReasonNoLabel
	}
	if !policy.Allows(label) {
		return nil, dedup.ReasonLabelRejected
	}

	score, err := r.scorer.Score(ctx, data)
	switch {
	case errors.Is(err, scoring.ErrUtilityImage):
		return nil, dedup.ReasonUtility
	case err != nil:
		logger.Debug("failed to score", "error", err)
		return nil, dedup.ReasonScoreFailed
	}

	p := &ScoredPhoto{
		AssetID:  c.asset.ID,
		Score:    score,
		Label:    label,
		Location: c.asset.Location,
		TakenAt:  c.asset.TakenAt,
		GroupID:  c.groupID,
	}
	if c.asset.Location != nil {
		p.LocationName = r.places.PlaceName(ctx, *c.asset.Location)
	}
	return p, dedup.ReasonKept
}
