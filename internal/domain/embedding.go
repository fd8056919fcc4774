package domain

import "context"

// EmbeddingResult is the vector plus usage for one embedded text.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in one collaborator call.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// HealthChecker is implemented by collaborators that can report availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ValidateDims checks that all vectors share one dimension and returns it.
// A mismatch is a configuration defect, surfaced as a typed validation error.
func ValidateDims(vecs [][]float32) (int, error) {
	if len(vecs) == 0 {
		return 0, nil
	}
	dim := len(vecs[0])
	for _, v := range vecs[1:] {
		if len(v) != dim {
			return 0, NewDimMismatch(dim, len(v))
		}
	}
	return dim, nil
}
