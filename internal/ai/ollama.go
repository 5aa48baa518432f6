package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/kozaktomas/photo-curator/internal/labels"
	"github.com/kozaktomas/photo-curator/internal/scoring"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2-vision:11b"
)

// OllamaProvider talks to a local Ollama server. Usage is tracked for stats
// only; pricing is always zero.
type OllamaProvider struct {
	meter
	client *api.Client
	model  string
}

func NewOllamaProvider(baseURL, model string, httpClient *http.Client) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL: %w", err)
	}
	// The API client appends /api/... itself
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}

	return &OllamaProvider{
		client: api.NewClient(base, httpClient),
		model:  model,
	}, nil
}

func (p *OllamaProvider) Name() string {
	return p.model
}

// Classify implements labels.Classifier
func (p *OllamaProvider) Classify(ctx context.Context, image []byte) ([]labels.Prediction, error) {
	var predictions []labels.Prediction
	err := p.ask(ctx, p.classifyPrompt(), image, func(content string) error {
		var err error
		predictions, err = parseClassify(content)
		return err
	})
	return predictions, err
}

// Aesthetics implements scoring.AestheticsModel
func (p *OllamaProvider) Aesthetics(ctx context.Context, image []byte) (scoring.Aesthetics, error) {
	var a scoring.Aesthetics
	err := p.ask(ctx, aestheticsPrompt, image, func(content string) error {
		var err error
		a, err = parseAesthetics(content)
		return err
	})
	return a, err
}

func (p *OllamaProvider) ask(ctx context.Context, systemPrompt string, image []byte, parse func(string) error) error {
	resizedData, err := ResizeImage(image, visionImageSize)
	if err != nil {
		return fmt.Errorf("failed to resize image: %w", err)
	}

	messages := []api.Message{
		{
			Role:    "system",
			Content: systemPrompt,
		},
		{
			Role:    "user",
			Content: "Analyze this photo.",
			Images:  []api.ImageData{api.ImageData(resizedData)},
		},
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		resp, err := p.chat(ctx, messages)
		if err != nil {
			return fmt.Errorf("ollama API error: %w", err)
		}

		p.track(int64(resp.PromptEvalCount), int64(resp.EvalCount))

		content := resp.Message.Content
		lastResponse = content

		if err := parse(content); err != nil {
			lastError = err
			messages = append(messages,
				api.Message{Role: "assistant", Content: content},
				api.Message{Role: "user", Content: retryFeedback(err)},
			)
			continue
		}
		return nil
	}

	return fmt.Errorf("failed to parse JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}

func (p *OllamaProvider) chat(ctx context.Context, messages []api.Message) (*api.ChatResponse, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   &stream,
		Format:   json.RawMessage(`"json"`),
		Options: map[string]any{
			"num_predict": 300,
		},
	}

	var final *api.ChatResponse
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		final = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	if final == nil {
		return nil, errors.New("empty response from ollama")
	}
	return final, nil
}
