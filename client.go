// Package answerd provides a small HTTP client for the answerd API.
package answerd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Turn is one conversation exchange entry.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SourceRef is a pointer to a document cited in an answer.
type SourceRef struct {
	ID        string `json:"id"`
	PayloadID string `json:"payload_id,omitempty"`
	Snippet   string `json:"snippet,omitempty"`
}

// Answer is the result of one Ask call.
type Answer struct {
	Answer  string      `json:"answer"`
	Sources []SourceRef `json:"sources"`
	Cached  bool        `json:"cached"`
}

// Document is one corpus entry for LoadCorpus.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Health is the service health report.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("answerd: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Client is the answerd SDK entry point.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the answerd server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Ask answers one user turn, optionally with conversation history.
func (c *Client) Ask(ctx context.Context, query string, history []Turn) (*Answer, error) {
	var out Answer
	err := c.do(ctx, http.MethodPost, "/v1/ask", map[string]any{
		"query":   query,
		"history": history,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadCorpus replaces the served document corpus.
func (c *Client) LoadCorpus(ctx context.Context, docs []Document) error {
	return c.do(ctx, http.MethodPut, "/v1/corpus", map[string]any{
		"documents": docs,
	}, nil)
}

// Health fetches the service health report. A degraded service returns the
// report along with the error.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("answerd: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("answerd: health request: %w", err)
	}
	defer resp.Body.Close()

	var out Health
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("answerd: decode health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &out, fmt.Errorf("answerd: service %s", out.Status)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("answerd: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("answerd: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("answerd: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("answerd: decode response: %w", err)
	}
	return nil
}
