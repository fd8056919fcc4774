// Package semcache persists semantic-cache entries as Redis hashes under an
// HNSW vector index, one hash per cached answer.
package semcache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/loreline/answerd/internal/db"
	"github.com/loreline/answerd/internal/domain"
)

const indexName = "answerd_cache_idx"

const (
	fieldVector   = "vector"
	fieldQuery    = "query"
	fieldResponse = "response"
	fieldSources  = "sources"
)

// store is the narrow slice of db.Store this repository needs.
type store interface {
	db.HashStore
	db.IndexManager
	db.Searcher
}

// Repo stores cache entries in Redis hashes indexed for KNN lookup.
type Repo struct {
	store      store
	prefix     string
	hnswM      int
	hnswEFCons int
}

// New creates a cache repository. Keys are written under prefix.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// WithHNSW overrides the index build parameters.
func (r *Repo) WithHNSW(m, efConstruct int) *Repo {
	r.hnswM = m
	r.hnswEFCons = efConstruct
	return r
}

// EnsureIndex creates the cache vector index if it does not exist. A
// concurrent creator winning the race is not an error.
func (r *Repo) EnsureIndex(ctx context.Context, dim int) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("check cache index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:        indexName,
		StorageType: db.StorageHash,
		Prefixes:    []string{r.prefix},
		Fields: []db.IndexField{
			{
				Name:              fieldVector,
				Type:              db.IndexFieldVector,
				VectorDim:         dim,
				VectorAlgo:        db.VectorHNSW,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnswM,
				VectorEFConstruct: r.hnswEFCons,
			},
		},
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create cache index: %w", err)
	}
	return nil
}

// Put writes one entry, overwriting any record with the same key.
func (r *Repo) Put(ctx context.Context, entry domain.CacheEntry) error {
	fields, err := entryToFields(entry)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, r.prefix+entry.Key, fields); err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

// Nearest returns the closest stored entry and its cosine similarity, or a
// nil entry when the index holds nothing.
func (r *Repo) Nearest(ctx context.Context, vector []float32) (*domain.CacheEntry, float64, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		Vector:       vector,
		K:            1,
		// __vector_score must be requested explicitly once RETURN is present.
		ReturnFields: []string{fieldQuery, fieldResponse, fieldSources, "__vector_score"},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("cache knn: %w", err)
	}
	if len(res.Entries) == 0 {
		return nil, 0, nil
	}

	hit := res.Entries[0]
	entry, err := entryFromFields(hit.Key, r.prefix, hit.Fields)
	if err != nil {
		return nil, 0, err
	}
	return entry, hit.Score, nil
}

// vectorToBytes encodes a vector as little-endian float32 bytes, the layout
// the FT vector field expects.
func vectorToBytes(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
