package retrieve

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/loreline/answerd/internal/domain"
	"github.com/loreline/answerd/internal/index/sparse"
	"github.com/loreline/answerd/internal/metrics"
)

// Variant fan-out caps: the synchronous path tolerates more variants than the
// concurrent one, which multiplies collaborator calls.
const (
	maxVariantsSync       = 5
	maxVariantsConcurrent = 3
)

// defaultPerVariantK is the sparse/dense search depth per query variant.
const defaultPerVariantK = 20

// Service is the hybrid retriever: expansion, per-variant rank fusion,
// cross-variant de-duplication, and publication-status filtering.
type Service struct {
	dense       DenseIndex
	expander    Expander
	reranker    Reranker
	sparse      atomic.Pointer[sparse.Index]
	perVariantK int
	concurrent  bool
	logger      *zap.Logger
}

// New creates a hybrid retriever over a dense index.
func New(dense DenseIndex, logger *zap.Logger) *Service {
	return &Service{
		dense:       dense,
		perVariantK: defaultPerVariantK,
		logger:      logger,
	}
}

// WithExpander enables query expansion.
func (s *Service) WithExpander(e Expander) *Service {
	s.expander = e
	return s
}

// WithReranker enables the re-ranking post-stage.
func (s *Service) WithReranker(r Reranker) *Service {
	s.reranker = r
	return s
}

// WithConcurrentFanout runs variant searches concurrently (fan-out capped at 3).
func (s *Service) WithConcurrentFanout(on bool) *Service {
	s.concurrent = on
	return s
}

// WithPerVariantK overrides the per-variant search depth.
func (s *Service) WithPerVariantK(k int) *Service {
	if k > 0 {
		s.perVariantK = k
	}
	return s
}

// SwapIndex atomically replaces the sparse index. A nil index (corpus
// unavailable) degrades retrieval to dense-only search.
func (s *Service) SwapIndex(ix *sparse.Index) {
	s.sparse.Store(ix)
}

// Retrieve runs the hybrid retrieval pipeline for one query.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) ([]domain.Candidate, error) {
	start := time.Now()
	defer func() {
		metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	}()

	variants := s.variants(ctx, query)

	var perVariant [][]domain.Candidate
	var err error
	if s.concurrent {
		perVariant, err = s.searchConcurrent(ctx, variants)
	} else {
		perVariant, err = s.searchSequential(ctx, variants)
	}
	if err != nil {
		return nil, err
	}

	candidates := mergeVariants(perVariant)

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	candidates = filterPublished(candidates)

	if s.reranker != nil {
		candidates = s.reranker.Rerank(ctx, query, candidates, topK)
	}

	return candidates, nil
}

func (s *Service) variants(ctx context.Context, query string) []string {
	variants := []string{query}
	if s.expander != nil {
		variants = s.expander.Expand(ctx, query)
	}

	limit := maxVariantsSync
	if s.concurrent {
		limit = maxVariantsConcurrent
	}
	if len(variants) > limit {
		variants = variants[:limit]
	}
	return variants
}

func (s *Service) searchSequential(ctx context.Context, variants []string) ([][]domain.Candidate, error) {
	fused := make([][]domain.Candidate, len(variants))
	for i, v := range variants {
		fused[i] = s.searchVariant(ctx, v)
	}
	return fused, nil
}

func (s *Service) searchConcurrent(ctx context.Context, variants []string) ([][]domain.Candidate, error) {
	fused := make([][]domain.Candidate, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	for i, v := range variants {
		i, v := i, v
		g.Go(func() error {
			fused[i] = s.searchVariant(gctx, v)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fused, nil
}

// searchVariant runs sparse and dense search for one variant and fuses the
// results. Collaborator failures degrade to the surviving side.
func (s *Service) searchVariant(ctx context.Context, variant string) []domain.Candidate {
	var sparseHits []sparse.Hit
	if ix := s.sparse.Load(); ix != nil {
		sparseHits = ix.Search(variant, s.perVariantK)
	}

	denseDocs, err := s.dense.Search(ctx, variant, s.perVariantK)
	if err != nil {
		s.logger.Warn("dense search failed, degrading to sparse-only",
			zap.String("variant", variant), zap.Error(err))
		denseDocs = nil
	}

	return fuseRRF(sparseHits, denseDocs, defaultFuseTopN)
}

// mergeVariants merges per-variant fused lists into one set, de-duplicating
// by content across variants and keeping the highest fused score per document.
func mergeVariants(perVariant [][]domain.Candidate) []domain.Candidate {
	seen := make(map[string]int)
	var merged []domain.Candidate

	for _, list := range perVariant {
		for _, c := range list {
			if idx, ok := seen[c.Doc.Content]; ok {
				if c.Fused > merged[idx].Fused {
					merged[idx] = c
				}
				continue
			}
			seen[c.Doc.Content] = len(merged)
			merged = append(merged, c)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Fused > merged[j].Fused
	})
	return merged
}

// filterPublished drops candidates whose metadata status is not "published",
// regardless of rank.
func filterPublished(candidates []domain.Candidate) []domain.Candidate {
	kept := candidates[:0]
	for _, c := range candidates {
		if c.Doc.Published() {
			kept = append(kept, c)
		}
	}
	return kept
}
