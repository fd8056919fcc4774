package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/loreline/answerd/internal/domain"
)

// Rewriter is the cloud-tier query rewriter over an OpenAI-compatible chat API.
type Rewriter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// RewriterConfig holds the cloud rewriter settings.
type RewriterConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

// NewRewriter creates an OpenAI-compatible chat rewriter.
func NewRewriter(cfg *RewriterConfig) *Rewriter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 128
	}

	return &Rewriter{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		logger:      cfg.Logger,
	}
}

// Rewrite produces a standalone search query for the given turn. The raw
// model output goes through the shared normalization before it is returned.
func (r *Rewriter) Rewrite(ctx context.Context, query string, history []domain.Turn) (string, error) {
	prompt := domain.BuildRewritePrompt(query, history)

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRewriteUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty rewrite response: %w", domain.ErrMalformedResponse)
	}

	return domain.NormalizeRewriteOutput(resp.Choices[0].Message.Content, query), nil
}

// Healthy probes API availability via ListModels.
func (r *Rewriter) Healthy(ctx context.Context) bool {
	_, err := r.client.ListModels(ctx)
	return err == nil
}
