package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kozaktomas/photo-curator/internal/constants"
	"github.com/kozaktomas/photo-curator/internal/fingerprint"
	"github.com/kozaktomas/photo-curator/internal/labels"
	"github.com/kozaktomas/photo-curator/internal/library"
	"github.com/kozaktomas/photo-curator/internal/logging"
)

// Options configures a Deduplicator
type Options struct {
	Threshold   float64 // distance below which two prints are duplicates
	Concurrency int     // parallel asset fetches
	ImageSize   int
	Logger      *slog.Logger
}

func (o *Options) defaults() {
	if o.Threshold <= 0 {
		o.Threshold = constants.DefaultDedupThreshold
	}
	if o.Concurrency <= 0 {
		o.Concurrency = constants.DefaultAssetConcurrency
	}
	if o.ImageSize <= 0 {
		o.ImageSize = constants.DedupImageSize
	}
	o.Logger = logging.OrDefault(o.Logger)
}

// Deduplicator runs the batch variant: parallel extraction followed by a
// sequential, order dependent comparison
type Deduplicator struct {
	lib       library.Library
	extractor fingerprint.Extractor
	labeler   *labels.Labeler
	prints    *PrintCache
	opts      Options
}

// NewDeduplicator creates a deduplicator. prints may be nil to disable
// print caching.
func NewDeduplicator(lib library.Library, extractor fingerprint.Extractor, labeler *labels.Labeler, prints *PrintCache, opts Options) *Deduplicator {
	opts.defaults()
	return &Deduplicator{
		lib:       lib,
		extractor: extractor,
		labeler:   labeler,
		prints:    prints,
		opts:      opts,
	}
}

// Result is the outcome of one run
type Result struct {
	Kept     []library.Asset
	Outcomes []Outcome
}

// Report summarizes the outcomes
func (r *Result) Report() Report {
	return Summarize(r.Outcomes)
}

type extraction struct {
	print    fingerprint.Print
	hasPrint bool
	label    string
	fetchErr error
}

// Run deduplicates assets in order against policy. On cancellation it
// returns ctx.Err() and no result.
func (d *Deduplicator) Run(ctx context.Context, assets []library.Asset, policy labels.Policy) (*Result, error) {
	extracted, err := d.extract(ctx, assets)
	if err != nil {
		return nil, err
	}

	result := &Result{Outcomes: make([]Outcome, 0, len(assets))}
	var anchors []int

	for i, asset := range assets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ex := extracted[i]
		outcome := Outcome{AssetID: asset.ID, Label: ex.label}

		if ex.fetchErr != nil {
			outcome.Reason = ReasonFetchFailed
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}
		if !ex.hasPrint {
			outcome.Reason = ReasonNoFingerprint
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		dup, err := d.firstMatch(ctx, ex.print, anchors, extracted)
		if err != nil {
			return nil, err
		}

		switch {
		case dup >= 0:
			outcome.Reason = ReasonSimilar
			outcome.DuplicateOf = assets[dup].ID
		case ex.label == "":
			outcome.Reason = ReasonNoLabel
		case !policy.Allows(ex.label):
			outcome.Reason = ReasonLabelRejected
		default:
			outcome.Kept = true
			outcome.Reason = ReasonKept
			anchors = append(anchors, i)
			result.Kept = append(result.Kept, asset)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// firstMatch returns the index of the first anchor closer than the
// threshold, or -1
func (d *Deduplicator) firstMatch(ctx context.Context, p fingerprint.Print, anchors []int, extracted []extraction) (int, error) {
	for _, j := range anchors {
		if err := ctx.Err(); err != nil {
			return -1, err
		}
		dist, err := d.extractor.Distance(extracted[j].print, p)
		if err != nil {
			d.opts.Logger.Debug("skipping incomparable prints", "error", err)
			continue
		}
		if fingerprint.RoundUp2(dist) < d.opts.Threshold {
			return j, nil
		}
	}
	return -1, nil
}

// extract fetches pixels once per asset and derives the print and label
// from them. Per-asset failures are recorded, cancellation aborts.
func (d *Deduplicator) extract(ctx context.Context, assets []library.Asset) ([]extraction, error) {
	results := make([]extraction, len(assets))
	semaphore := make(chan struct{}, d.opts.Concurrency)
	var wg sync.WaitGroup

	for i, asset := range assets {
		wg.Add(1)
		go func(idx int, a library.Asset) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-semaphore }()

			results[idx] = d.extractOne(ctx, a)
		}(i, asset)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *Deduplicator) extractOne(ctx context.Context, a library.Asset) extraction {
	var ex extraction
	logger := d.opts.Logger.With("asset", a.ID)

	if d.prints != nil {
		ex.print, ex.hasPrint = d.prints.Get(ctx, a.ID)
	}
	label, labelCached := d.labeler.Cached(a.ID)
	if ex.hasPrint && labelCached {
		ex.label = label
		return ex
	}

	if ctx.Err() != nil {
		return ex
	}
	data, err := d.lib.FetchPixels(ctx, a.ID, d.opts.ImageSize)
	if ctx.Err() != nil {
		return ex
	}
	if err != nil {
		logger.Debug("failed to fetch image", "error", err)
		ex.fetchErr = err
		return ex
	}

	if !ex.hasPrint {
		p, err := d.extractor.Extract(ctx, data)
		switch {
		case err != nil:
			logger.Debug("failed to extract print", "error", err)
		default:
			ex.print, ex.hasPrint = p, true
			if d.prints != nil {
				d.prints.Set(ctx, a.ID, p)
			}
		}
	}

	label, err = d.labeler.LabelImage(ctx, a.ID, data)
	if err != nil && !errors.Is(err, labels.ErrNoLabel) {
		logger.Debug("failed to label", "error", err)
	}
	ex.label = label
	return ex
}

// String is used in logs
func (r *Result) String() string {
	return fmt.Sprintf("%d kept of %d", len(r.Kept), len(r.Outcomes))
}
