package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/kozaktomas/photo-curator/internal/labels"
	"github.com/kozaktomas/photo-curator/internal/scoring"
)

const chatModel = openai.ChatModelGPT4_1Mini

type OpenAIProvider struct {
	meter
	client *openai.Client
}

// NewOpenAIProvider creates a provider for the OpenAI chat completions API.
// Extra options are passed to the client (e.g. option.WithBaseURL).
func NewOpenAIProvider(apiKey string, pricing RequestPricing, opts ...option.RequestOption) *OpenAIProvider {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	p := &OpenAIProvider{client: &client}
	p.pricing = pricing
	return p
}

func (p *OpenAIProvider) Name() string {
	return chatModel
}

// Classify implements labels.Classifier
func (p *OpenAIProvider) Classify(ctx context.Context, image []byte) ([]labels.Prediction, error) {
	var predictions []labels.Prediction
	err := p.ask(ctx, p.classifyPrompt(), image, func(content string) error {
		var err error
		predictions, err = parseClassify(content)
		return err
	})
	return predictions, err
}

// Aesthetics implements scoring.AestheticsModel
func (p *OpenAIProvider) Aesthetics(ctx context.Context, image []byte) (scoring.Aesthetics, error) {
	var a scoring.Aesthetics
	err := p.ask(ctx, aestheticsPrompt, image, func(content string) error {
		var err error
		a, err = parseAesthetics(content)
		return err
	})
	return a, err
}

// ask sends the prompt with the image attached and hands the answer to parse,
// asking the model to fix its JSON when parse fails.
func (p *OpenAIProvider) ask(ctx context.Context, systemPrompt string, image []byte, parse func(string) error) error {
	// Resize image to save costs
	resizedData, err := ResizeImage(image, visionImageSize)
	if err != nil {
		return fmt.Errorf("failed to resize image: %w", err)
	}
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(resizedData)

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(systemPrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart("Analyze this photo."),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL,
							Detail: "low",
						}),
					},
				},
			},
		},
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    chatModel,
			Messages: messages,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
			MaxTokens: openai.Int(300),
		})
		if err != nil {
			return fmt.Errorf("OpenAI API error: %w", err)
		}
		if len(resp.Choices) == 0 {
			return errors.New("no response from OpenAI")
		}

		p.track(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

		content := resp.Choices[0].Message.Content
		lastResponse = content

		if err := parse(content); err != nil {
			lastError = err
			messages = append(messages,
				openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						Content: openai.ChatCompletionAssistantMessageParamContentUnion{
							OfString: openai.String(content),
						},
					},
				},
				openai.ChatCompletionMessageParamUnion{
					OfUser: &openai.ChatCompletionUserMessageParam{
						Content: openai.ChatCompletionUserMessageParamContentUnion{
							OfString: openai.String(retryFeedback(err)),
						},
					},
				},
			)
			continue
		}
		return nil
	}

	return fmt.Errorf("failed to parse JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}
