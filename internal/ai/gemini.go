package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/kozaktomas/photo-curator/internal/labels"
	"github.com/kozaktomas/photo-curator/internal/scoring"
)

const geminiModel = "gemini-2.5-flash"

type GeminiProvider struct {
	meter
	client *genai.Client
}

// NewGeminiProvider creates a provider for the Gemini API. baseURL may be
// empty to use the public endpoint.
func NewGeminiProvider(ctx context.Context, apiKey, baseURL string, pricing RequestPricing) (*GeminiProvider, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	p := &GeminiProvider{client: client}
	p.pricing = pricing
	return p, nil
}

func (p *GeminiProvider) Name() string {
	return geminiModel
}

// Classify implements labels.Classifier
func (p *GeminiProvider) Classify(ctx context.Context, image []byte) ([]labels.Prediction, error) {
	var predictions []labels.Prediction
	err := p.ask(ctx, p.classifyPrompt(), image, func(content string) error {
		var err error
		predictions, err = parseClassify(content)
		return err
	})
	return predictions, err
}

// Aesthetics implements scoring.AestheticsModel
func (p *GeminiProvider) Aesthetics(ctx context.Context, image []byte) (scoring.Aesthetics, error) {
	var a scoring.Aesthetics
	err := p.ask(ctx, aestheticsPrompt, image, func(content string) error {
		var err error
		a, err = parseAesthetics(content)
		return err
	})
	return a, err
}

func (p *GeminiProvider) ask(ctx context.Context, systemPrompt string, image []byte, parse func(string) error) error {
	resizedData, err := ResizeImage(image, visionImageSize)
	if err != nil {
		return fmt.Errorf("failed to resize image: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: systemPrompt + "\n\nAnalyze this photo."},
				{InlineData: &genai.Blob{Data: resizedData, MIMEType: "image/jpeg"}},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		result, err := p.client.Models.GenerateContent(ctx, geminiModel, contents, config)
		if err != nil {
			return fmt.Errorf("gemini API error: %w", err)
		}

		if result.UsageMetadata != nil {
			p.track(int64(result.UsageMetadata.PromptTokenCount), int64(result.UsageMetadata.CandidatesTokenCount))
		}

		content := result.Text()
		if content == "" {
			return errors.New("no response from Gemini")
		}
		lastResponse = content

		if err := parse(content); err != nil {
			lastError = err
			contents = append(contents,
				&genai.Content{
					Role:  "model",
					Parts: []*genai.Part{{Text: content}},
				},
				&genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: retryFeedback(err)}},
				},
			)
			continue
		}
		return nil
	}

	return fmt.Errorf("failed to parse JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}
