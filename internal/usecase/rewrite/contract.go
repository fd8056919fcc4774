package rewrite

import (
	"context"

	"github.com/loreline/answerd/internal/domain"
)

// Rewriter turns a context-dependent follow-up question into a standalone
// query, or the NO_SEARCH_NEEDED sentinel for turns requiring no retrieval.
// The router is indifferent to which concrete backend it holds.
type Rewriter interface {
	Rewrite(ctx context.Context, query string, history []domain.Turn) (string, error)
	Healthy(ctx context.Context) bool
}
