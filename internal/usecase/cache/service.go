// Package cache implements a semantic response cache keyed by query
// embeddings. A lookup is a nearest-neighbor probe over previously answered
// query vectors; a stored answer is reused when cosine similarity clears the
// configured threshold. The cache sits off the critical path: every backend
// failure degrades to a miss or a dropped write, never to a request error.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/loreline/answerd/internal/domain"
	"github.com/loreline/answerd/internal/metrics"
)

const defaultThreshold = 0.92

// Service performs threshold-gated cache lookups and best-effort writes.
type Service struct {
	repo      Repository
	threshold float64
	dim       int
	logger    *zap.Logger

	indexReady atomic.Bool
}

// New creates a cache service over repo. A non-positive threshold falls back
// to the default.
func New(repo Repository, threshold float64, dim int, logger *zap.Logger) *Service {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Service{repo: repo, threshold: threshold, dim: dim, logger: logger}
}

// Get probes the cache with the query vector. The second return value reports
// a hit; any backend failure is reported as a miss.
func (s *Service) Get(ctx context.Context, vector []float32) (*domain.Answer, bool) {
	if len(vector) == 0 || !s.ensureIndex(ctx) {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	entry, similarity, err := s.repo.Nearest(ctx, vector)
	if err != nil {
		s.logger.Warn("cache lookup failed, treating as miss", zap.Error(err))
		metrics.CacheErrorsTotal.Inc()
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	if entry == nil || similarity < s.threshold {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	s.logger.Debug("semantic cache hit",
		zap.String("cached_query", entry.Query),
		zap.Float64("similarity", similarity))

	return &domain.Answer{
		Text:    entry.Response,
		Sources: entry.Sources,
		Cached:  true,
	}, true
}

// Set stores a generated answer under the query vector. Failures are logged
// and dropped; the write is fire-and-forget from the caller's perspective.
func (s *Service) Set(ctx context.Context, vector []float32, query, response string, sources []domain.SourceRef) {
	if len(vector) == 0 || !s.ensureIndex(ctx) {
		return
	}

	entry := domain.CacheEntry{
		Key:      VectorKey(vector),
		Vector:   vector,
		Query:    query,
		Response: response,
		Sources:  sources,
	}
	if err := s.repo.Put(ctx, entry); err != nil {
		s.logger.Warn("cache write failed, dropping entry", zap.Error(err))
		metrics.CacheErrorsTotal.Inc()
	}
}

// ensureIndex lazily creates the vector index on first use. The ready flag is
// an optimization only; EnsureIndex itself is idempotent, so a lost race just
// costs a redundant call.
func (s *Service) ensureIndex(ctx context.Context) bool {
	if s.indexReady.Load() {
		return true
	}
	if err := s.repo.EnsureIndex(ctx, s.dim); err != nil {
		s.logger.Warn("cache index unavailable", zap.Error(err))
		metrics.CacheErrorsTotal.Inc()
		return false
	}
	s.indexReady.Store(true)
	return true
}

// VectorKey derives a deterministic entry key from the vector's byte
// representation, so identical embeddings map to the same record.
func VectorKey(vector []float32) string {
	h := sha256.New()
	var buf [4]byte
	for _, v := range vector {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
