// Package dense implements embedding-similarity document retrieval over
// Redis hashes with an HNSW vector index. It embeds queries at search time
// and stores precomputed document vectors alongside content and metadata.
package dense

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/loreline/answerd/internal/db"
	"github.com/loreline/answerd/internal/domain"
)

const indexName = "answerd_docs_idx"

const (
	fieldVector    = "vector"
	fieldContent   = "content"
	fieldStatus    = "status"
	fieldPayloadID = "payload_id"
)

// Embedder produces the query vector for KNN search.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// store is the slice of db.Store this repository needs.
type store interface {
	db.HashStore
	db.IndexManager
	db.Searcher
}

// Repo is the dense document index.
type Repo struct {
	store    store
	embedder Embedder
	prefix   string
	dim      int
}

// New creates a dense repository writing under prefix with vectors of the
// given dimension.
func New(s store, embedder Embedder, prefix string, dim int) *Repo {
	return &Repo{store: s, embedder: embedder, prefix: prefix, dim: dim}
}

// EnsureIndex creates the document vector index if absent.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("check docs index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:        indexName,
		StorageType: db.StorageHash,
		Prefixes:    []string{r.prefix},
		Fields: []db.IndexField{
			{Name: fieldStatus, Type: db.IndexFieldTag},
			{
				Name:           fieldVector,
				Type:           db.IndexFieldVector,
				VectorDim:      r.dim,
				VectorAlgo:     db.VectorHNSW,
				VectorDistance: db.DistanceCosine,
			},
		},
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create docs index: %w", err)
	}
	return nil
}

// PutDocuments writes documents and their vectors in one pipelined batch.
// Vectors must be parallel to docs and dimension-validated by the caller.
func (r *Repo) PutDocuments(ctx context.Context, docs []domain.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("docs/vectors length mismatch: %d vs %d", len(docs), len(vectors))
	}

	items := make([]db.HashSetItem, len(docs))
	for i, doc := range docs {
		fields, err := docToFields(doc, vectors[i])
		if err != nil {
			return err
		}
		items[i] = db.HashSetItem{Key: r.prefix + doc.ID, Fields: fields}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("store documents: %w", err)
	}
	return nil
}

// Search embeds the query and returns the k nearest documents in descending
// similarity order.
func (r *Repo) Search(ctx context.Context, query string, k int) ([]domain.Document, error) {
	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		Vector:       emb.Embedding,
		K:            k,
		// __vector_score must be requested explicitly once RETURN is present.
		ReturnFields: []string{fieldContent, fieldStatus, fieldPayloadID, fieldMetadata, "__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("docs knn: %w", err)
	}

	docs := make([]domain.Document, 0, len(res.Entries))
	for _, entry := range res.Entries {
		doc, err := docFromFields(entry.Key, r.prefix, entry.Fields)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func vectorToBytes(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
