package retrieve

import (
	"context"

	"github.com/loreline/answerd/internal/domain"
)

// DenseIndex is the embedding-similarity retrieval collaborator.
type DenseIndex interface {
	Search(ctx context.Context, query string, k int) ([]domain.Document, error)
}

// Expander broadens recall by producing query variants (original first).
// Expansion failure is non-fatal; implementations degrade to the original query.
type Expander interface {
	Expand(ctx context.Context, query string) []string
}

// Reranker reorders a fused candidate set. Implementations must never fail
// retrieval: on scorer unavailability they return the input truncated to topK.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.Candidate, topK int) []domain.Candidate
}
