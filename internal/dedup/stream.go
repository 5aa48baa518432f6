package dedup

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kozaktomas/photo-curator/internal/constants"
	"github.com/kozaktomas/photo-curator/internal/fingerprint"
	"github.com/kozaktomas/photo-curator/internal/library"
	"github.com/kozaktomas/photo-curator/internal/logging"
)

// StreamOptions configures a Stream
type StreamOptions struct {
	Threshold     float64
	MinConfidence float64 // a match only counts if the new print is at least this confident
	ImageSize     int
	Logger        *slog.Logger
}

func (o *StreamOptions) defaults() {
	if o.Threshold <= 0 {
		o.Threshold = constants.DefaultDedupThreshold
	}
	if o.MinConfidence <= 0 {
		o.MinConfidence = constants.DefaultPrintConfidence
	}
	if o.ImageSize <= 0 {
		o.ImageSize = constants.StreamImageSize
	}
	o.Logger = logging.OrDefault(o.Logger)
}

// Stream is the incremental variant: each accepted print becomes an anchor
// for the rest of the run. A Stream is meant for one run at a time; call
// Reset between runs.
type Stream struct {
	lib       library.Library
	extractor fingerprint.Extractor
	opts      StreamOptions

	mu      sync.Mutex
	anchors []fingerprint.Print
	seen    map[string]bool
}

// NewStream creates a streaming filter
func NewStream(lib library.Library, extractor fingerprint.Extractor, opts StreamOptions) *Stream {
	opts.defaults()
	return &Stream{
		lib:       lib,
		extractor: extractor,
		opts:      opts,
		seen:      make(map[string]bool),
	}
}

// Reset forgets all anchors and seen IDs
func (s *Stream) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchors = nil
	s.seen = make(map[string]bool)
}

// Anchors returns the number of accepted prints in this run
func (s *Stream) Anchors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.anchors)
}

// Accept decides whether asset is new in this run. Per-asset failures are
// reported in the Outcome; err is only set on cancellation.
func (s *Stream) Accept(ctx context.Context, asset library.Asset) (Outcome, error) {
	outcome := Outcome{AssetID: asset.ID}

	s.mu.Lock()
	if s.seen[asset.ID] {
		s.mu.Unlock()
		outcome.Reason = ReasonDuplicateID
		return outcome, nil
	}
	s.seen[asset.ID] = true
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return outcome, err
	}
	data, err := s.lib.FetchPixels(ctx, asset.ID, s.opts.ImageSize)
	if ctx.Err() != nil {
		return outcome, ctx.Err()
	}
	if err != nil {
		s.opts.Logger.Debug("failed to fetch image", "asset", asset.ID, "error", err)
		outcome.Reason = ReasonFetchFailed
		return outcome, nil
	}

	p, err := s.extractor.Extract(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}
		s.opts.Logger.Debug("failed to extract print", "asset", asset.ID, "error", err)
		outcome.Reason = ReasonNoFingerprint
		return outcome, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Confidence >= s.opts.MinConfidence {
		for _, anchor := range s.anchors {
			dist, err := s.extractor.Distance(anchor, p)
			if err != nil {
				continue
			}
			if fingerprint.RoundUp2(dist) < s.opts.Threshold {
				outcome.Reason = ReasonSimilar
				return outcome, nil
			}
		}
	}
	s.anchors = append(s.anchors, p)
	outcome.Kept = true
	outcome.Reason = ReasonKept
	return outcome, nil
}

// Filter resets the run and returns the assets accepted in order
func (s *Stream) Filter(ctx context.Context, assets []library.Asset) ([]library.Asset, []Outcome, error) {
	s.Reset()

	var kept []library.Asset
	outcomes := make([]Outcome, 0, len(assets))
	for _, a := range assets {
		o, err := s.Accept(ctx, a)
		if err != nil {
			return nil, nil, err
		}
		outcomes = append(outcomes, o)
		if o.Kept {
			kept = append(kept, a)
		}
	}
	return kept, outcomes, nil
}
