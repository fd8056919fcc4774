package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrVectorDimMismatch signals an embedding dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrMalformedResponse signals a collaborator response missing a required field.
	ErrMalformedResponse = errors.New("malformed collaborator response")
	// ErrRewriteUnavailable signals a rewrite backend failure.
	ErrRewriteUnavailable = errors.New("rewrite backend unavailable")
	// ErrGenerationFailed signals an answer generation failure.
	ErrGenerationFailed = errors.New("generation failed")
)

// DimMismatchError wraps ErrVectorDimMismatch with the observed dimensions.
type DimMismatchError struct {
	Want int
	Got  int
}

func (e *DimMismatchError) Error() string {
	return fmt.Sprintf("%s: want %d, got %d", ErrVectorDimMismatch.Error(), e.Want, e.Got)
}

func (e *DimMismatchError) Unwrap() error { return ErrVectorDimMismatch }

// NewDimMismatch creates a dimension mismatch error.
func NewDimMismatch(want, got int) error {
	return &DimMismatchError{Want: want, Got: got}
}
