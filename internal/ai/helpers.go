package ai

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kozaktomas/photo-curator/internal/labels"
	"github.com/kozaktomas/photo-curator/internal/scoring"
)

//go:embed prompts/classify.txt
var classifyPrompt string

//go:embed prompts/aesthetics.txt
var aestheticsPrompt string

const (
	maxRetries      = 3
	visionImageSize = 800
)

// buildClassifyPrompt returns the embedded classify prompt with the vocabulary filled in.
func buildClassifyPrompt(vocabulary []string) string {
	vocabJSON, _ := json.Marshal(vocabulary)
	if len(vocabulary) == 0 {
		vocabJSON = []byte("[]")
	}
	return fmt.Sprintf(classifyPrompt, string(vocabJSON))
}

// retryFeedback is sent back to the model when its answer was not valid JSON.
func retryFeedback(err error) string {
	return fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again. Output ONLY valid JSON, no other text.", err)
}

// parseClassify decodes a classify answer into predictions.
func parseClassify(content string) ([]labels.Prediction, error) {
	var resp classifyResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &resp); err != nil {
		return nil, err
	}
	return resp.Labels, nil
}

// parseAesthetics decodes an aesthetics answer.
func parseAesthetics(content string) (scoring.Aesthetics, error) {
	var a scoring.Aesthetics
	if err := json.Unmarshal([]byte(extractJSON(content)), &a); err != nil {
		return scoring.Aesthetics{}, err
	}
	return a, nil
}

// extractJSON attempts to extract JSON from a response that may contain extra text
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return content
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}

	// If no matching brace found, return from start
	return content[start:]
}
