package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/loreline/answerd/internal/domain"
)

const paraphraserSystemPrompt = `You produce alternative phrasings of a search query for recall expansion. Reply with one paraphrase per line, no numbering, no other text.`

// Paraphraser generates query paraphrases for recall-oriented expansion.
type Paraphraser struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// ParaphraserConfig holds the paraphraser settings.
type ParaphraserConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewParaphraser creates an OpenAI-compatible query paraphraser.
func NewParaphraser(cfg *ParaphraserConfig) *Paraphraser {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Paraphraser{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Paraphrase returns up to n alternative phrasings of the query.
func (p *Paraphraser) Paraphrase(ctx context.Context, query string, n int) ([]string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0.7,
		MaxTokens:   64 * n,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: paraphraserSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Produce %d paraphrases of: %s", n, query)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("paraphrase query: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty paraphrase response: %w", domain.ErrMalformedResponse)
	}

	var out []string
	for _, line := range strings.Split(resp.Choices[0].Message.Content, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), `"'`))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == n {
			break
		}
	}
	return out, nil
}
