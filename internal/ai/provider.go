package ai

import (
	"sync"

	"github.com/kozaktomas/photo-curator/internal/labels"
	"github.com/kozaktomas/photo-curator/internal/scoring"
)

// Provider is a vision language model backend. Every provider can label
// photos and estimate their aesthetics.
type Provider interface {
	labels.Classifier
	scoring.AestheticsModel

	Name() string
	SetVocabulary(vocabulary []string)

	// Usage tracking.
	GetUsage() Usage
	ResetUsage()
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	Requests     int
	InputTokens  int
	OutputTokens int
	TotalCost    float64 // in USD
}

// RequestPricing holds input/output prices per 1M tokens
type RequestPricing struct {
	Input  float64
	Output float64
}

// classifyResponse is the JSON shape the classify prompt asks for.
type classifyResponse struct {
	Labels []labels.Prediction `json:"labels"`
}

// meter is shared by the providers. Calls arrive from concurrent workers.
type meter struct {
	mu         sync.Mutex
	usage      Usage
	pricing    RequestPricing
	vocabulary []string
}

func (m *meter) track(inputTokens, outputTokens int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage.Requests++
	m.usage.InputTokens += int(inputTokens)
	m.usage.OutputTokens += int(outputTokens)
	m.usage.TotalCost += float64(inputTokens) / 1_000_000 * m.pricing.Input
	m.usage.TotalCost += float64(outputTokens) / 1_000_000 * m.pricing.Output
}

func (m *meter) GetUsage() Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}

func (m *meter) ResetUsage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = Usage{}
}

// SetVocabulary sets the label names the classify prompt suggests
func (m *meter) SetVocabulary(vocabulary []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vocabulary = append([]string(nil), vocabulary...)
}

func (m *meter) classifyPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return buildClassifyPrompt(m.vocabulary)
}
