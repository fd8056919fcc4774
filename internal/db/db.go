package db

import (
	"context"
	"time"
)

// Store is the database facade. Consumers depend on the narrow sub-interfaces.
type Store interface {
	Pinger
	HashStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides KNN search over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}

// StorageType selects the FT index storage backend.
type StorageType string

// StorageHash indexes Redis hashes.
const StorageHash StorageType = "HASH"

// VectorAlgo selects the vector index algorithm.
type VectorAlgo string

const (
	// VectorHNSW is the approximate HNSW graph index.
	VectorHNSW VectorAlgo = "HNSW"
	// VectorFlat is the exact brute-force index.
	VectorFlat VectorAlgo = "FLAT"
)

// VectorDistance selects the vector distance metric.
type VectorDistance string

// DistanceCosine is the cosine distance metric.
const DistanceCosine VectorDistance = "COSINE"

// IndexFieldType selects the field type inside an FT index schema.
type IndexFieldType string

const (
	// IndexFieldTag is an exact-match tag field.
	IndexFieldTag IndexFieldType = "TAG"
	// IndexFieldVector is a vector similarity field.
	IndexFieldVector IndexFieldType = "VECTOR"
)

// IndexField describes one schema field of an FT index.
type IndexField struct {
	Name              string
	Type              IndexFieldType
	VectorDim         int
	VectorAlgo        VectorAlgo
	VectorDistance    VectorDistance
	VectorM           int
	VectorEFConstruct int
}

// IndexDefinition describes an FT index to create.
type IndexDefinition struct {
	Name        string
	StorageType StorageType
	Prefixes    []string
	Fields      []IndexField
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit. Score is cosine similarity in [0,1].
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
