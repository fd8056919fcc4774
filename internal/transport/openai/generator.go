package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/loreline/answerd/internal/domain"
)

const generatorSystemPrompt = `You are a helpful assistant. Answer the user's question using only the provided context passages. Cite nothing the context does not support. If the context is empty, answer conversationally from the dialogue alone.`

// Generator produces final answers over an OpenAI-compatible chat API,
// grounding them on retrieved passages.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// GeneratorConfig holds the answer generator settings.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

// NewGenerator creates an OpenAI-compatible answer generator.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		logger:      cfg.Logger,
	}
}

// Generate answers the query from the candidate passages. An empty candidate
// set yields a conversational reply.
func (g *Generator) Generate(ctx context.Context, query string, history []domain.Turn, candidates []domain.Candidate) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: generatorSystemPrompt,
	})
	for _, t := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(t.Role),
			Content: t.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: buildUserMessage(query, candidates),
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Messages:    messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty generation response: %w", domain.ErrMalformedResponse)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildUserMessage(query string, candidates []domain.Candidate) string {
	if len(candidates) == 0 {
		return query
	}

	var b strings.Builder
	b.WriteString("Context:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, c.Doc.Content)
	}
	fmt.Fprintf(&b, "\nQuestion: %s", query)
	return b.String()
}
