package answer

import (
	"context"

	"github.com/loreline/answerd/internal/domain"
)

// RewriteRouter turns a conversational turn into a standalone search query.
type RewriteRouter interface {
	Rewrite(ctx context.Context, query string, history []domain.Turn) domain.RewriteResult
}

// Retriever returns ranked candidates for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.Candidate, error)
}

// Cache is the semantic response cache. Both operations are best-effort.
type Cache interface {
	Get(ctx context.Context, vector []float32) (*domain.Answer, bool)
	Set(ctx context.Context, vector []float32, query, response string, sources []domain.SourceRef)
}

// Generator produces the final answer text from the query and its evidence.
// Candidates may be empty for conversational turns.
type Generator interface {
	Generate(ctx context.Context, query string, history []domain.Turn, candidates []domain.Candidate) (string, error)
}
