package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/loreline/answerd/internal/domain"
)

func testRewriter(url string) *Rewriter {
	return New(&Config{
		BaseURL: url,
		Model:   "qwen2.5:1.5b",
		Logger:  zap.NewNop(),
	})
}

func TestRewrite(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(generateResponse{Response: `"litecoin current price"`, Done: true})
	}))
	defer server.Close()

	out, err := testRewriter(server.URL).Rewrite(context.Background(), "what about it", []domain.Turn{
		{Role: domain.RoleUser, Content: "tell me about litecoin"},
	})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if out != "litecoin current price" {
		t.Errorf("out = %q, want quotes stripped", out)
	}
	if got.Stream {
		t.Error("request must disable streaming")
	}
	if got.Model != "qwen2.5:1.5b" {
		t.Errorf("model = %q", got.Model)
	}
	if got.Options.NumPredict != 128 {
		t.Errorf("num_predict = %d, want default 128", got.Options.NumPredict)
	}
}

func TestRewrite_SentinelPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "NO_SEARCH_NEEDED", Done: true})
	}))
	defer server.Close()

	out, err := testRewriter(server.URL).Rewrite(context.Background(), "thanks", nil)
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if out != domain.NoSearchNeeded {
		t.Errorf("out = %q, want sentinel", out)
	}
}

func TestRewrite_ServerErrorIsTyped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testRewriter(server.URL).Rewrite(context.Background(), "q", nil)
	if !errors.Is(err, domain.ErrRewriteUnavailable) {
		t.Fatalf("err = %v, want ErrRewriteUnavailable", err)
	}
}

func TestRewrite_HonorsContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := testRewriter(server.URL).Rewrite(ctx, "q", nil)
	if err == nil {
		t.Fatal("expected a deadline error")
	}
	if time.Since(start) > time.Second {
		t.Error("rewrite must abort promptly when the context expires")
	}
}

func TestHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if !testRewriter(server.URL).Healthy(context.Background()) {
		t.Error("expected healthy")
	}
	if testRewriter("http://127.0.0.1:1").Healthy(context.Background()) {
		t.Error("unreachable server must be unhealthy")
	}
}
