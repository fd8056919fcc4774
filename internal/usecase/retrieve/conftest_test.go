package retrieve

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/loreline/answerd/internal/domain"
)

// --- Mocks ---

type mockDense struct {
	docs    []domain.Document
	err     error
	calls   int
	queries []string
}

func (m *mockDense) Search(_ context.Context, query string, _ int) ([]domain.Document, error) {
	m.calls++
	m.queries = append(m.queries, query)
	return m.docs, m.err
}

type mockExpander struct {
	variants []string
}

func (m *mockExpander) Expand(_ context.Context, query string) []string {
	if m.variants != nil {
		return m.variants
	}
	return []string{query}
}

type mockReranker struct {
	called bool
	out    []domain.Candidate
}

func (m *mockReranker) Rerank(_ context.Context, _ string, candidates []domain.Candidate, topK int) []domain.Candidate {
	m.called = true
	if m.out != nil {
		return m.out
	}
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

func newTestService(t *testing.T, dense *mockDense) *Service {
	t.Helper()
	return New(dense, zap.NewNop())
}

func publishedDoc(id, content string) domain.Document {
	return domain.Document{ID: id, Content: content, Metadata: map[string]any{"status": "published"}}
}

func draftDoc(id, content string) domain.Document {
	return domain.Document{ID: id, Content: content, Metadata: map[string]any{"status": "draft"}}
}
