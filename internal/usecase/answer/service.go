// Package answer orchestrates the query-serving pipeline: rewrite, semantic
// cache probe, hybrid retrieval, generation, cache write-back.
//
// Stage order matters. The rewrite runs first so that conversational turns
// flagged NO_SEARCH_NEEDED never touch the cache or the indexes, and so the
// cache is keyed by the standalone rewritten query rather than the raw turn,
// which keeps follow-up phrasings of the same question cache-equivalent.
package answer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/loreline/answerd/internal/domain"
)

// defaultTopK bounds the candidate set handed to generation.
const defaultTopK = 10

// Service runs the full pipeline for one user turn.
type Service struct {
	rewriter  RewriteRouter
	embedder  domain.Embedder
	cache     Cache
	retriever Retriever
	generator Generator
	topK      int
	logger    *zap.Logger
}

// New wires the pipeline. Cache may be nil to run uncached.
func New(rewriter RewriteRouter, embedder domain.Embedder, cache Cache, retriever Retriever, generator Generator, logger *zap.Logger) *Service {
	return &Service{
		rewriter:  rewriter,
		embedder:  embedder,
		cache:     cache,
		retriever: retriever,
		generator: generator,
		topK:      defaultTopK,
		logger:    logger,
	}
}

// WithTopK overrides the retrieval depth.
func (s *Service) WithTopK(k int) *Service {
	if k > 0 {
		s.topK = k
	}
	return s
}

// Ask answers one user turn.
func (s *Service) Ask(ctx context.Context, query string, history []domain.Turn) (*domain.Answer, error) {
	rewrite := s.rewriter.Rewrite(ctx, query, history)

	if rewrite.NoSearch() {
		return s.converse(ctx, query, history)
	}

	vector := s.embedQuery(ctx, rewrite.Query)

	if s.cache != nil && vector != nil {
		if cached, hit := s.cache.Get(ctx, vector); hit {
			return cached, nil
		}
	}

	candidates, err := s.retriever.Retrieve(ctx, rewrite.Query, s.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve %q: %w", rewrite.Query, err)
	}

	text, err := s.generator.Generate(ctx, rewrite.Query, history, candidates)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	sources := make([]domain.SourceRef, len(candidates))
	for i, c := range candidates {
		sources[i] = domain.SourceRefOf(c)
	}
	answer := &domain.Answer{Text: text, Sources: sources}

	if s.cache != nil && vector != nil {
		s.cache.Set(ctx, vector, rewrite.Query, text, sources)
	}
	return answer, nil
}

// converse handles turns that need no document search. The cache and the
// indexes are never consulted on this path.
func (s *Service) converse(ctx context.Context, query string, history []domain.Turn) (*domain.Answer, error) {
	text, err := s.generator.Generate(ctx, query, history, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	return &domain.Answer{Text: text}, nil
}

// embedQuery produces the cache-key vector. Embedding failure disables the
// cache for this request but never fails it.
func (s *Service) embedQuery(ctx context.Context, query string) []float32 {
	if s.cache == nil {
		return nil
	}
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed, skipping cache", zap.Error(err))
		return nil
	}
	return emb.Embedding
}
