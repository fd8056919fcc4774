// Package ingest loads a document corpus into both retrieval tiers: vectors
// and metadata into the dense store, and a freshly built keyword index swapped
// into the retriever. A corpus load is all-or-nothing; a failed load leaves
// the previously served indexes untouched.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/loreline/answerd/internal/domain"
	"github.com/loreline/answerd/internal/index/sparse"
)

// embedBatchSize bounds one embedding provider call.
const embedBatchSize = 64

// Service ingests document corpora.
type Service struct {
	embedder domain.BatchEmbedder
	store    DocumentStore
	swapper  IndexSwapper
	dim      int
	logger   *zap.Logger
}

// New creates an ingestion service. dim is the expected embedding dimension;
// zero disables the check against configuration.
func New(embedder domain.BatchEmbedder, store DocumentStore, swapper IndexSwapper, dim int, logger *zap.Logger) *Service {
	return &Service{embedder: embedder, store: store, swapper: swapper, dim: dim, logger: logger}
}

// Load replaces the served corpus with docs. On any error the previously
// loaded corpus keeps serving.
func (s *Service) Load(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("empty corpus")
	}
	start := time.Now()

	vectors, err := s.embedAll(ctx, docs)
	if err != nil {
		return err
	}

	dim, err := domain.ValidateDims(vectors)
	if err != nil {
		return fmt.Errorf("corpus vectors: %w", err)
	}
	if s.dim > 0 && dim != s.dim {
		return fmt.Errorf("corpus vectors: %w", domain.NewDimMismatch(s.dim, dim))
	}

	if err := s.store.EnsureIndex(ctx); err != nil {
		return err
	}
	if err := s.store.PutDocuments(ctx, docs, vectors); err != nil {
		return err
	}

	// The keyword index goes live last, once the dense side is fully written.
	s.swapper.SwapIndex(sparse.Build(docs))

	s.logger.Info("corpus loaded",
		zap.Int("documents", len(docs)),
		zap.Int("dim", dim),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// embedAll vectorizes the corpus in provider-sized batches, preserving
// document order.
func (s *Service) embedAll(ctx context.Context, docs []domain.Document) ([][]float32, error) {
	vectors := make([][]float32, 0, len(docs))
	for lo := 0; lo < len(docs); lo += embedBatchSize {
		hi := min(lo+embedBatchSize, len(docs))

		texts := make([]string, hi-lo)
		for i, d := range docs[lo:hi] {
			texts[i] = d.Content
		}

		batch, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed corpus batch %d: %w", lo/embedBatchSize, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embed corpus batch %d: got %d vectors for %d texts: %w",
				lo/embedBatchSize, len(batch), len(texts), domain.ErrMalformedResponse)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
