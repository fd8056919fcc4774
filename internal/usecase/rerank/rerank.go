// Package rerank reorders a fused candidate set with a cross-encoder-style
// pairwise relevance scorer. The stage is strictly best-effort: scorer
// failure or absence must never fail retrieval.
package rerank

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/loreline/answerd/internal/domain"
)

// Scorer rates query/passage relevance, one score per passage.
type Scorer interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Reranker is the pluggable re-ranking post-stage.
type Reranker struct {
	scorer  Scorer
	enabled bool
	logger  *zap.Logger
}

// New creates a reranker. When disabled (or scorer is nil) Rerank passes the
// input through truncated to topK.
func New(scorer Scorer, enabled bool, logger *zap.Logger) *Reranker {
	return &Reranker{scorer: scorer, enabled: enabled, logger: logger}
}

// Rerank produces a strict relevance ordering and annotates each kept
// candidate with its score and 1-based rank.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.Candidate, topK int) []domain.Candidate {
	if !r.enabled || r.scorer == nil || len(candidates) == 0 {
		return truncate(candidates, topK)
	}

	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = c.Doc.Content
	}

	scores, err := r.scorer.Score(ctx, query, passages)
	if err != nil || len(scores) != len(candidates) {
		r.logger.Warn("rerank scoring unavailable, keeping fused order",
			zap.Error(err), zap.Int("candidates", len(candidates)))
		return truncate(candidates, topK)
	}

	reranked := make([]domain.Candidate, len(candidates))
	copy(reranked, candidates)
	for i := range reranked {
		reranked[i].RerankScore = scores[i]
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].RerankScore > reranked[j].RerankScore
	})

	reranked = truncate(reranked, topK)
	for i := range reranked {
		reranked[i].Rank = i + 1
	}
	return reranked
}

func truncate(candidates []domain.Candidate, topK int) []domain.Candidate {
	if topK > 0 && len(candidates) > topK {
		return candidates[:topK]
	}
	return candidates
}
