package fingerprint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	defaultEmbeddingURL   = "http://localhost:8000"
	defaultEmbeddingModel = "clip"
	embeddingTimeout      = 60 * time.Second

	// maxErrorBody bounds how much of a failed response ends up in the error.
	maxErrorBody = 512
)

// EmbeddingClient extracts prints from an image embedding server
// (POST /embed/image, multipart field "file"). Distance is cosine distance.
type EmbeddingClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewEmbeddingClient creates a new embedding client. Empty arguments fall
// back to a local server and the "clip" model name.
func NewEmbeddingClient(baseURL, model string) *EmbeddingClient {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	if model == "" {
		model = defaultEmbeddingModel
	}
	return &EmbeddingClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: embeddingTimeout},
	}
}

type embeddingResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
}

// Extract implements Extractor.
func (c *EmbeddingClient) Extract(ctx context.Context, imageData []byte) (Print, error) {
	body, contentType, err := imageForm(imageData)
	if err != nil {
		return Print{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed/image", body)
	if err != nil {
		return Print{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return Print{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Print{}, fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Print{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return Print{}, errors.New("empty embedding returned")
	}
	if out.Dim != 0 && out.Dim != len(out.Embedding) {
		return Print{}, fmt.Errorf("%w: server reported %d, got %d values", ErrDimensionMismatch, out.Dim, len(out.Embedding))
	}

	return Print{Vector: out.Embedding, Confidence: 1, Model: c.Name()}, nil
}

// Distance is the cosine distance between two embeddings.
func (c *EmbeddingClient) Distance(a, b Print) (float64, error) {
	return CosineDistance(a.Vector, b.Vector)
}

// Name identifies the prints produced by this client.
func (c *EmbeddingClient) Name() string {
	return "embedding:" + c.model
}

// imageForm wraps imageData in a single-part multipart body. The part carries
// the sniffed image type so the server does not have to guess.
func imageForm(imageData []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image"`)
	h.Set("Content-Type", imageType(imageData))
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, "", fmt.Errorf("failed to write image data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func imageType(data []byte) string {
	if ct := http.DetectContentType(data); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "application/octet-stream"
}
