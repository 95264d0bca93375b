package match

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPEmbedder asks the embedding sidecar for page vectors. The
// sidecar hosts the same model the training pipeline embeds with, so
// scores stay comparable to the stored index.
type HTTPEmbedder struct {
	baseURL string
	httpc   *http.Client
}

var _ Embedder = (*HTTPEmbedder)(nil)

// NewHTTPEmbedder creates an embedder client for the given sidecar
// base URL.
func NewHTTPEmbedder(baseURL string) *HTTPEmbedder {
	return &HTTPEmbedder{
		baseURL: baseURL,
		// Embedding a page renders it first; allow for slow pages.
		httpc: &http.Client{Timeout: 60 * time.Second},
	}
}

type embedRequest struct {
	Path string `json:"path"`
	Page int    `json:"page"`
}

type embedResponse struct {
	ImageEmbedding []float64 `json:"image_embedding"`
	TextEmbedding  []float64 `json:"text_embedding"`
}

func (e *HTTPEmbedder) EmbedPage(ctx context.Context, path string, page int) ([]float64, []float64, error) {
	body, err := json.Marshal(embedRequest{Path: path, Page: page})
	if err != nil {
		return nil, nil, fmt.Errorf("embedder: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings/page", bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("embedder: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpc.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("embedder: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("embedder: unexpected status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, nil, fmt.Errorf("embedder: decode response: %w", err)
	}
	return out.ImageEmbedding, out.TextEmbedding, nil
}
