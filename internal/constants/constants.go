// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Pagination constants
const (
	// DefaultPageSize is the default number of items to fetch per API page
	DefaultPageSize = 1000

	// DefaultMomentCount is the page size for moment album listings
	DefaultMomentCount = 500
)

// Grouping constants
const (
	// DefaultGroupThresholdKM is the maximum distance from a group's first
	// asset for another asset to join that group
	DefaultGroupThresholdKM = 50.0

	// EarthRadiusKM is the mean Earth radius used for haversine distance
	EarthRadiusKM = 6371.0088

	// GroupPreviewSize is the number of assets shown as a group preview
	GroupPreviewSize = 5
)

// Deduplication constants
const (
	// DefaultDedupThreshold is the feature-print distance below which two
	// photos are considered duplicates
	DefaultDedupThreshold = 0.35

	// DefaultPrintConfidence is the minimum extractor confidence for a
	// streaming similarity match to count
	DefaultPrintConfidence = 0.75

	// DedupImageSize is the pixel size requested for batch deduplication
	DedupImageSize = 400

	// StreamImageSize is the pixel size requested for streaming deduplication,
	// labeling and vision scoring
	StreamImageSize = 512
)

// Label constants
const (
	// DefaultLabelConfidence is the minimum classifier confidence (exclusive)
	// for a label to be kept
	DefaultLabelConfidence = 0.75

	// LabelSeparator joins multiple labels into one label string
	LabelSeparator = "/"

	// DefaultSuggestLimit is the default number of label suggestions
	DefaultSuggestLimit = 10
)

// Scoring constants
const (
	// ScoringInputSize is the square input size of the regression models
	ScoringInputSize = 224

	// ScoreBuckets is the number of output classes of a regression model (scores 1..10)
	ScoreBuckets = 10
)

// Processing constants
const (
	// DefaultMaxConcurrency is the number of groups processed at the same time
	DefaultMaxConcurrency = 10

	// DefaultAssetConcurrency is the number of assets fetched in parallel within a group
	DefaultAssetConcurrency = 8

	// ScoringBatchSize is the number of assets scored per batch on the quality path
	ScoringBatchSize = 20

	// MaxImageSize is the maximum dimension (width or height) sent to AI providers
	MaxImageSize = 1024
)

// Handler constants
const (
	// DefaultSimilarLimit is the default limit for similarity search results
	DefaultSimilarLimit = 20

	// MaxSimilarLimit caps the limit a client may request
	MaxSimilarLimit = 100

	// DefaultSimilarMaxDistance is the cosine distance cutoff for similarity search
	DefaultSimilarMaxDistance = 0.5

	// MaxRequestBodySize is the largest JSON body accepted by the API
	MaxRequestBodySize = 1 << 20

	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)
