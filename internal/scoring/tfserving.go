package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kozaktomas/photo-curator/internal/constants"
)

// TFServingModel calls the TensorFlow Serving REST predict API of one model
type TFServingModel struct {
	baseURL string
	name    string
	client  *http.Client
}

// NewTFServingModel creates a client for model name at baseURL
func NewTFServingModel(baseURL, name string) *TFServingModel {
	return &TFServingModel{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		name:    name,
		client:  &http.Client{},
	}
}

type predictRequest struct {
	Instances [][][][3]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float32 `json:"predictions"`
	Error       string      `json:"error"`
}

// Predict implements RegressionModel for a flat HWC tensor
func (m *TFServingModel) Predict(ctx context.Context, input []float32) ([]float32, error) {
	size := constants.ScoringInputSize
	if len(input) != size*size*3 {
		return nil, fmt.Errorf("expected %d values, got %d", size*size*3, len(input))
	}

	instance := make([][][3]float32, size)
	for y := range size {
		instance[y] = make([][3]float32, size)
		for x := range size {
			i := (y*size + x) * 3
			instance[y][x] = [3]float32{input[i], input[i+1], input[i+2]}
		}
	}

	body, err := json.Marshal(predictRequest{Instances: [][][][3]float32{instance}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/models/%s:predict", m.baseURL, url.PathEscape(m.name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var out predictResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("model %s: %s", m.name, out.Error)
	}
	if len(out.Predictions) == 0 {
		return nil, fmt.Errorf("model %s returned no predictions", m.name)
	}
	return out.Predictions[0], nil
}
