package openai

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/loreline/answerd/internal/domain"
)

const scorerSystemPrompt = `You rate how relevant each numbered passage is to the question. Reply with one score per line in the form "N: S" where N is the passage number and S is a relevance score between 0.0 and 1.0. No other text.`

// scoreLine matches one "N: S" line of the scorer output.
var scoreLine = regexp.MustCompile(`(?m)^\s*(\d+)\s*[:.)]\s*([0-9]*\.?[0-9]+)\s*$`)

// Scorer rates query/passage relevance with an LLM judge. It backs the
// optional re-ranking stage.
type Scorer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// ScorerConfig holds the relevance scorer settings.
type ScorerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewScorer creates an OpenAI-compatible relevance scorer.
func NewScorer(cfg *ScorerConfig) *Scorer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Scorer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Score returns one relevance score per passage, in passage order.
func (s *Scorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nPassages:\n", query)
	for i, p := range passages {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.model,
		MaxTokens: 8 * len(passages),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: scorerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: b.String()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("score passages: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty scorer response: %w", domain.ErrMalformedResponse)
	}

	return parseScores(resp.Choices[0].Message.Content, len(passages))
}

// parseScores extracts per-passage scores from the model output. Every
// passage must receive exactly one score or the output is rejected.
func parseScores(raw string, n int) ([]float64, error) {
	scores := make([]float64, n)
	seen := make([]bool, n)

	for _, m := range scoreLine.FindAllStringSubmatch(raw, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > n {
			continue
		}
		val, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		scores[idx-1] = val
		seen[idx-1] = true
	}

	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("scorer output missing passage %d: %w", i+1, domain.ErrMalformedResponse)
		}
	}
	return scores, nil
}
