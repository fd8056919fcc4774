package ingest

import (
	"context"

	"github.com/loreline/answerd/internal/domain"
	"github.com/loreline/answerd/internal/index/sparse"
)

// DocumentStore persists documents and their vectors for dense retrieval.
type DocumentStore interface {
	EnsureIndex(ctx context.Context) error
	PutDocuments(ctx context.Context, docs []domain.Document, vectors [][]float32) error
}

// IndexSwapper receives the freshly built keyword index.
type IndexSwapper interface {
	SwapIndex(ix *sparse.Index)
}
