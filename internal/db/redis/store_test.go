package redis

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/loreline/answerd/internal/db"
)

func TestBuildCreateArgs_HNSWVector(t *testing.T) {
	def := &db.IndexDefinition{
		Name:     "answerd:cache:idx",
		Prefixes: []string{"answerd:cache:"},
		Fields: []db.IndexField{
			{
				Name:              "vector",
				Type:              db.IndexFieldVector,
				VectorDim:         1024,
				VectorAlgo:        db.VectorHNSW,
				VectorDistance:    db.DistanceCosine,
				VectorM:           32,
				VectorEFConstruct: 400,
			},
		},
	}

	args, err := buildCreateArgs(def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(args, " ")
	want := "answerd:cache:idx ON HASH PREFIX 1 answerd:cache: SCHEMA vector " +
		"VECTOR HNSW 10 TYPE FLOAT32 DIM 1024 DISTANCE_METRIC COSINE M 32 EF_CONSTRUCTION 400"
	if joined != want {
		t.Errorf("args mismatch:\n got %q\nwant %q", joined, want)
	}
}

func TestBuildCreateArgs_DefaultsToHNSWCosine(t *testing.T) {
	def := &db.IndexDefinition{
		Name: "idx",
		Fields: []db.IndexField{
			{Name: "vector", Type: db.IndexFieldVector, VectorDim: 4},
		},
	}

	args, err := buildCreateArgs(def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "VECTOR HNSW") {
		t.Errorf("expected HNSW default, got %q", joined)
	}
	if !strings.Contains(joined, "DISTANCE_METRIC COSINE") {
		t.Errorf("expected COSINE default, got %q", joined)
	}
}

func TestBuildCreateArgs_Validation(t *testing.T) {
	tests := []struct {
		name string
		def  *db.IndexDefinition
	}{
		{"missing name", &db.IndexDefinition{Fields: []db.IndexField{{Name: "vector", Type: db.IndexFieldVector, VectorDim: 4}}}},
		{"no fields", &db.IndexDefinition{Name: "idx"}},
		{"zero dim", &db.IndexDefinition{Name: "idx", Fields: []db.IndexField{{Name: "vector", Type: db.IndexFieldVector}}}},
		{"unknown type", &db.IndexDefinition{Name: "idx", Fields: []db.IndexField{{Name: "f", Type: "GEO"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildCreateArgs(tt.def); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestVectorToBytes_LittleEndianFloat32(t *testing.T) {
	vec := []float32{1.0, -2.5}
	got := []byte(vectorToBytes(vec))

	if len(got) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(got))
	}
	for i, f := range vec {
		bits := binary.LittleEndian.Uint32(got[i*4:])
		if math.Float32frombits(bits) != f {
			t.Errorf("element %d: got %f, want %f", i, math.Float32frombits(bits), f)
		}
	}
}
