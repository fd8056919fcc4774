package domain

import (
	"errors"
	"testing"
)

func TestValidateDims(t *testing.T) {
	dim, err := ValidateDims([][]float32{{1, 2}, {3, 4}, {5, 6}})
	if err != nil {
		t.Fatalf("ValidateDims: %v", err)
	}
	if dim != 2 {
		t.Errorf("dim = %d, want 2", dim)
	}
}

func TestValidateDims_Mismatch(t *testing.T) {
	_, err := ValidateDims([][]float32{{1, 2}, {3}})
	if !errors.Is(err, ErrVectorDimMismatch) {
		t.Fatalf("err = %v, want ErrVectorDimMismatch", err)
	}

	var dm *DimMismatchError
	if !errors.As(err, &dm) {
		t.Fatal("expected a DimMismatchError")
	}
	if dm.Want != 2 || dm.Got != 1 {
		t.Errorf("mismatch detail = %d/%d, want 2/1", dm.Want, dm.Got)
	}
}

func TestValidateDims_Empty(t *testing.T) {
	dim, err := ValidateDims(nil)
	if err != nil || dim != 0 {
		t.Errorf("empty input: dim = %d, err = %v", dim, err)
	}
}
