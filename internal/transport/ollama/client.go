// Package ollama implements the local rewrite tier over the Ollama HTTP API.
// The local model is latency-sensitive infrastructure: callers bound it with
// a deadline and fail over to the cloud tier when it is slow or down.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/loreline/answerd/internal/domain"
)

// Rewriter is a query rewriter backed by a local Ollama server.
type Rewriter struct {
	baseURL     string
	model       string
	temperature float32
	maxTokens   int
	httpClient  *http.Client
	logger      *zap.Logger
}

// Config holds the local rewriter settings.
type Config struct {
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

// New creates a local Ollama rewriter.
func New(cfg *Config) *Rewriter {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 128
	}

	return &Rewriter{
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		// No client-level timeout: the caller's context carries the deadline.
		httpClient: &http.Client{},
		logger:     cfg.Logger,
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Rewrite produces a standalone search query via the /api/generate endpoint.
func (r *Rewriter) Rewrite(ctx context.Context, query string, history []domain.Turn) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  r.model,
		Prompt: domain.BuildRewritePrompt(query, history),
		Stream: false,
		Options: generateOptions{
			Temperature: r.temperature,
			NumPredict:  r.maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRewriteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: ollama returned %d", domain.ErrRewriteUnavailable, resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", domain.ErrMalformedResponse)
	}

	return domain.NormalizeRewriteOutput(out.Response, query), nil
}

// Healthy probes the server via the cheap /api/tags endpoint.
func (r *Rewriter) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
