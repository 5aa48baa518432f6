package labels

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/photo-curator/internal/cache"
	"github.com/kozaktomas/photo-curator/internal/constants"
	"github.com/kozaktomas/photo-curator/internal/library"
	"github.com/kozaktomas/photo-curator/internal/logging"
)

// Labeler classifies assets and memoizes their label by asset ID.
// Policy changes never invalidate cached labels.
type Labeler struct {
	lib        library.Library
	classifier Classifier
	cache      *cache.Memo[string, string]
	threshold  float64
	imageSize  int
	logger     *slog.Logger
}

// LabelerOption customizes a Labeler
type LabelerOption func(*Labeler)

// WithThreshold sets the minimum (exclusive) prediction confidence
func WithThreshold(threshold float64) LabelerOption {
	return func(l *Labeler) { l.threshold = threshold }
}

// WithImageSize sets the pixel size requested from the library
func WithImageSize(size int) LabelerOption {
	return func(l *Labeler) { l.imageSize = size }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) LabelerOption {
	return func(l *Labeler) { l.logger = logger }
}

// NewLabeler creates a labeler backed by memo. The caller owns memo.
func NewLabeler(lib library.Library, classifier Classifier, memo *cache.Memo[string, string], opts ...LabelerOption) *Labeler {
	l := &Labeler{
		lib:        lib,
		classifier: classifier,
		cache:      memo,
		threshold:  constants.DefaultLabelConfidence,
		imageSize:  constants.StreamImageSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.OrDefault(l.logger)
	return l
}

// Cached returns the cached label of an asset without classifying it
func (l *Labeler) Cached(assetID string) (string, bool) {
	return l.cache.Get(assetID)
}

// ClearCache forgets every cached label, so the next Label call classifies again
func (l *Labeler) ClearCache() {
	l.cache.Clear()
}

// Label returns the label of asset, fetching pixels and classifying on a
// cache miss. An empty composed label is cached and reported as ErrNoLabel.
func (l *Labeler) Label(ctx context.Context, asset library.Asset) (string, error) {
	if label, ok := l.cache.Get(asset.ID); ok {
		if label == "" {
			return "", ErrNoLabel
		}
		return label, nil
	}

	data, err := l.lib.FetchPixels(ctx, asset.ID, l.imageSize)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}
	return l.LabelImage(ctx, asset.ID, data)
}

// LabelImage classifies already fetched pixels of an asset
func (l *Labeler) LabelImage(ctx context.Context, assetID string, data []byte) (string, error) {
	if label, ok := l.cache.Get(assetID); ok {
		if label == "" {
			return "", ErrNoLabel
		}
		return label, nil
	}

	predictions, err := l.classifier.Classify(ctx, data)
	if err != nil {
		return "", fmt.Errorf("failed to classify: %w", err)
	}

	label := Compose(predictions, l.threshold)
	l.cache.Set(assetID, label)
	l.logger.Debug("classified asset", "asset", assetID, "label", label, "predictions", len(predictions))

	if label == "" {
		return "", ErrNoLabel
	}
	return label, nil
}
