// Package mock provides fakes of the pipeline collaborators for testing.
//
// The fakes share one convention: MockLibrary returns the asset ID as the
// pixel payload unless Pixels says otherwise, so the classifier, extractor
// and scorer fakes can key their answers by string(image).
package mock

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/kozaktomas/photo-curator/internal/fingerprint"
	"github.com/kozaktomas/photo-curator/internal/labels"
	"github.com/kozaktomas/photo-curator/internal/library"
	"github.com/kozaktomas/photo-curator/internal/scoring"
)

// MockLibrary is a mock implementation of library.Library
type MockLibrary struct {
	mu      sync.RWMutex
	Assets  []library.Asset
	Moments []library.Moment
	Pixels  map[string][]byte

	// Gate, when set, blocks FetchPixels until it is closed or ctx is done
	Gate chan struct{}

	// Error injection
	ListError   error
	FetchErrors map[string]error

	fetches   atomic.Int64
	fetchedMu sync.Mutex
	fetched   map[string]int
}

// NewMockLibrary creates a library serving assets
func NewMockLibrary(assets ...library.Asset) *MockLibrary {
	return &MockLibrary{
		Assets:      assets,
		Pixels:      make(map[string][]byte),
		FetchErrors: make(map[string]error),
		fetched:     make(map[string]int),
	}
}

// ListAssets returns the assets, honoring the filter limit
func (m *MockLibrary) ListAssets(ctx context.Context, filter library.Filter) ([]library.Asset, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]library.Asset(nil), m.Assets...)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ListMoments returns the moments
func (m *MockLibrary) ListMoments(ctx context.Context, filter library.Filter) ([]library.Moment, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]library.Moment(nil), m.Moments...), nil
}

// FetchPixels returns the configured pixels or the asset ID as bytes
func (m *MockLibrary) FetchPixels(ctx context.Context, assetID string, size int) ([]byte, error) {
	m.fetches.Add(1)
	m.fetchedMu.Lock()
	m.fetched[assetID]++
	m.fetchedMu.Unlock()

	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.FetchErrors[assetID]; ok {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if data, ok := m.Pixels[assetID]; ok {
		return data, nil
	}
	return []byte(assetID), nil
}

// Fetches returns the total number of FetchPixels calls
func (m *MockLibrary) Fetches() int {
	return int(m.fetches.Load())
}

// FetchCount returns the number of FetchPixels calls for one asset
func (m *MockLibrary) FetchCount(assetID string) int {
	m.fetchedMu.Lock()
	defer m.fetchedMu.Unlock()
	return m.fetched[assetID]
}

// MockClassifier is a mock implementation of labels.Classifier
type MockClassifier struct {
	Predictions map[string][]labels.Prediction
	Error       error
	calls       atomic.Int64
}

// NewMockClassifier creates a classifier answering from predictions
func NewMockClassifier(predictions map[string][]labels.Prediction) *MockClassifier {
	return &MockClassifier{Predictions: predictions}
}

// Classify returns the predictions for string(image)
func (m *MockClassifier) Classify(ctx context.Context, image []byte) ([]labels.Prediction, error) {
	m.calls.Add(1)
	if m.Error != nil {
		return nil, m.Error
	}
	return m.Predictions[string(image)], nil
}

// Calls returns how many times Classify ran
func (m *MockClassifier) Calls() int {
	return int(m.calls.Load())
}

// Label is a shorthand for a single confident prediction
func Label(name string) []labels.Prediction {
	return []labels.Prediction{{Name: name, Confidence: 0.9}}
}

// MockExtractor is a mock implementation of fingerprint.Extractor. Prints
// are one-dimensional and the distance is the absolute difference.
type MockExtractor struct {
	Positions  map[string]float32
	Confidence map[string]float64
	Errors     map[string]error
	calls      atomic.Int64
}

// NewMockExtractor creates an extractor placing images on a line
func NewMockExtractor(positions map[string]float32) *MockExtractor {
	return &MockExtractor{
		Positions:  positions,
		Confidence: make(map[string]float64),
		Errors:     make(map[string]error),
	}
}

// Extract returns the print for string(image)
func (m *MockExtractor) Extract(ctx context.Context, image []byte) (fingerprint.Print, error) {
	m.calls.Add(1)
	key := string(image)
	if err, ok := m.Errors[key]; ok {
		return fingerprint.Print{}, err
	}
	pos, ok := m.Positions[key]
	if !ok {
		return fingerprint.Print{}, fmt.Errorf("no print for %q", key)
	}
	conf, ok := m.Confidence[key]
	if !ok {
		conf = 1
	}
	return fingerprint.Print{Vector: []float32{pos}, Confidence: conf, Model: m.Name()}, nil
}

// Distance is the absolute difference of the two positions
func (m *MockExtractor) Distance(a, b fingerprint.Print) (float64, error) {
	if len(a.Vector) != 1 || len(b.Vector) != 1 {
		return 0, fingerprint.ErrDimensionMismatch
	}
	return math.Abs(float64(a.Vector[0] - b.Vector[0])), nil
}

// Name identifies the fake
func (m *MockExtractor) Name() string {
	return "mock"
}

// Calls returns how many times Extract ran
func (m *MockExtractor) Calls() int {
	return int(m.calls.Load())
}

// MockAestheticsModel is a mock implementation of scoring.AestheticsModel
type MockAestheticsModel struct {
	Results map[string]scoring.Aesthetics
	Error   error
}

// Aesthetics returns the configured result for string(image)
func (m *MockAestheticsModel) Aesthetics(ctx context.Context, image []byte) (scoring.Aesthetics, error) {
	if m.Error != nil {
		return scoring.Aesthetics{}, m.Error
	}
	r, ok := m.Results[string(image)]
	if !ok {
		return scoring.Aesthetics{}, fmt.Errorf("no aesthetics for %q", string(image))
	}
	return r, nil
}

// MockRegressionModel is a mock implementation of scoring.RegressionModel
type MockRegressionModel struct {
	Probabilities []float32
	Error         error
	Inputs        atomic.Int64
}

// Predict returns the configured distribution
func (m *MockRegressionModel) Predict(ctx context.Context, tensor []float32) ([]float32, error) {
	m.Inputs.Add(1)
	if m.Error != nil {
		return nil, m.Error
	}
	return m.Probabilities, nil
}

// MockScorer is a mock implementation of scoring.Scorer
type MockScorer struct {
	Scores map[string]float64
	Errors map[string]error
}

// Score returns the configured score for string(image)
func (m *MockScorer) Score(ctx context.Context, image []byte) (float64, error) {
	if err, ok := m.Errors[string(image)]; ok {
		return 0, err
	}
	s, ok := m.Scores[string(image)]
	if !ok {
		return 0, fmt.Errorf("no score for %q", string(image))
	}
	return s, nil
}

// MockGeocoder is a mock implementation of geocode.Geocoder
type MockGeocoder struct {
	Names map[string]string
	Error error
	calls atomic.Int64
}

// Reverse returns the configured name for loc.Key()
func (m *MockGeocoder) Reverse(ctx context.Context, loc library.Location) (string, error) {
	m.calls.Add(1)
	if m.Error != nil {
		return "", m.Error
	}
	return m.Names[loc.Key()], nil
}

// Calls returns how many lookups were made
func (m *MockGeocoder) Calls() int {
	return int(m.calls.Load())
}
