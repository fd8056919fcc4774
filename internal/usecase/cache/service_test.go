package cache

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/loreline/answerd/internal/domain"
)

// memRepo is an in-memory Repository with exact cosine similarity, close
// enough to the real vector index for threshold semantics.
type memRepo struct {
	entries    map[string]domain.CacheEntry
	ensureErr  error
	nearestErr error
	putErr     error
	ensured    int
}

func newMemRepo() *memRepo {
	return &memRepo{entries: map[string]domain.CacheEntry{}}
}

func (m *memRepo) EnsureIndex(_ context.Context, _ int) error {
	m.ensured++
	return m.ensureErr
}

func (m *memRepo) Nearest(_ context.Context, vector []float32) (*domain.CacheEntry, float64, error) {
	if m.nearestErr != nil {
		return nil, 0, m.nearestErr
	}
	var best *domain.CacheEntry
	bestSim := -1.0
	for key := range m.entries {
		e := m.entries[key]
		sim := cosine(vector, e.Vector)
		if sim > bestSim {
			bestSim = sim
			best = &e
		}
	}
	if best == nil {
		return nil, 0, nil
	}
	return best, bestSim, nil
}

func (m *memRepo) Put(_ context.Context, entry domain.CacheEntry) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[entry.Key] = entry
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestCache_RoundTrip(t *testing.T) {
	repo := newMemRepo()
	svc := New(repo, 0.92, 3, zap.NewNop())
	ctx := context.Background()

	vec := []float32{1, 0, 0}
	sources := []domain.SourceRef{{ID: "doc-1", Snippet: "snippet"}}
	svc.Set(ctx, vec, "what is litecoin", "Litecoin is a cryptocurrency.", sources)

	answer, hit := svc.Get(ctx, vec)
	if !hit {
		t.Fatal("expected a hit for an identical vector")
	}
	if answer.Text != "Litecoin is a cryptocurrency." {
		t.Errorf("answer text = %q", answer.Text)
	}
	if !answer.Cached {
		t.Error("cached answer must be flagged as cached")
	}
	if len(answer.Sources) != 1 || answer.Sources[0].ID != "doc-1" {
		t.Errorf("sources not preserved: %v", answer.Sources)
	}
}

func TestCache_OrthogonalVectorMisses(t *testing.T) {
	repo := newMemRepo()
	svc := New(repo, 0.92, 3, zap.NewNop())
	ctx := context.Background()

	svc.Set(ctx, []float32{1, 0, 0}, "q", "answer", nil)

	if _, hit := svc.Get(ctx, []float32{0, 1, 0}); hit {
		t.Error("orthogonal vector must miss")
	}
}

func TestCache_ThresholdBoundary(t *testing.T) {
	repo := newMemRepo()
	svc := New(repo, 0.92, 2, zap.NewNop())
	ctx := context.Background()

	stored := []float32{1, 0}
	svc.Set(ctx, stored, "q", "answer", nil)

	// cos(theta) just below and just above the threshold.
	below := []float32{0.90, float32(math.Sqrt(1 - 0.90*0.90))}
	above := []float32{0.95, float32(math.Sqrt(1 - 0.95*0.95))}

	if _, hit := svc.Get(ctx, below); hit {
		t.Error("similarity below threshold must miss")
	}
	if _, hit := svc.Get(ctx, above); !hit {
		t.Error("similarity above threshold must hit")
	}
}

func TestCache_LookupErrorIsMiss(t *testing.T) {
	repo := newMemRepo()
	repo.nearestErr = errors.New("store down")
	svc := New(repo, 0.92, 3, zap.NewNop())

	if _, hit := svc.Get(context.Background(), []float32{1, 0, 0}); hit {
		t.Error("backend failure must degrade to a miss")
	}
}

func TestCache_EnsureIndexFailureIsMiss(t *testing.T) {
	repo := newMemRepo()
	repo.ensureErr = errors.New("no FT module")
	svc := New(repo, 0.92, 3, zap.NewNop())
	ctx := context.Background()

	if _, hit := svc.Get(ctx, []float32{1, 0, 0}); hit {
		t.Error("index creation failure must degrade to a miss")
	}
	// Writes must also be dropped silently.
	svc.Set(ctx, []float32{1, 0, 0}, "q", "answer", nil)
	if len(repo.entries) != 0 {
		t.Error("write must be dropped when the index is unavailable")
	}
}

func TestCache_EnsureIndexOnlyOnce(t *testing.T) {
	repo := newMemRepo()
	svc := New(repo, 0.92, 3, zap.NewNop())
	ctx := context.Background()

	svc.Set(ctx, []float32{1, 0, 0}, "q", "answer", nil)
	svc.Get(ctx, []float32{1, 0, 0})
	svc.Get(ctx, []float32{1, 0, 0})

	if repo.ensured != 1 {
		t.Errorf("EnsureIndex called %d times, want 1", repo.ensured)
	}
}

func TestCache_IdenticalVectorOverwrites(t *testing.T) {
	repo := newMemRepo()
	svc := New(repo, 0.92, 3, zap.NewNop())
	ctx := context.Background()

	vec := []float32{1, 0, 0}
	svc.Set(ctx, vec, "q", "first", nil)
	svc.Set(ctx, vec, "q", "second", nil)

	if len(repo.entries) != 1 {
		t.Fatalf("identical vectors must share a key, got %d entries", len(repo.entries))
	}
	answer, hit := svc.Get(ctx, vec)
	if !hit || answer.Text != "second" {
		t.Errorf("expected overwrite to win, got %+v hit=%v", answer, hit)
	}
}

func TestVectorKey_Deterministic(t *testing.T) {
	a := VectorKey([]float32{0.1, 0.2, 0.3})
	b := VectorKey([]float32{0.1, 0.2, 0.3})
	c := VectorKey([]float32{0.1, 0.2, 0.4})

	if a != b {
		t.Error("identical vectors must produce identical keys")
	}
	if a == c {
		t.Error("distinct vectors must produce distinct keys")
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
}
