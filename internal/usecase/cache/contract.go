package cache

import (
	"context"

	"github.com/loreline/answerd/internal/domain"
)

// Repository is the vector-indexed storage contract for cache entries.
type Repository interface {
	// EnsureIndex creates the backing vector index if absent. It must be
	// idempotent and tolerate a concurrent creator.
	EnsureIndex(ctx context.Context, dim int) error

	// Nearest returns the single closest stored entry and its cosine
	// similarity in [0,1], or a nil entry when the store is empty.
	Nearest(ctx context.Context, vector []float32) (*domain.CacheEntry, float64, error)

	// Put stores an entry under its key, overwriting any previous value.
	Put(ctx context.Context, entry domain.CacheEntry) error
}
