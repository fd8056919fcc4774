package rewrite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/loreline/answerd/internal/domain"
)

// --- Mocks ---

type mockRewriter struct {
	mu      sync.Mutex
	out     string
	err     error
	delay   time.Duration
	started chan struct{} // closed on first call when set
	release chan struct{} // blocks until closed when set
	calls   int
}

func (m *mockRewriter) Rewrite(ctx context.Context, query string, _ []domain.Turn) (string, error) {
	m.mu.Lock()
	m.calls++
	first := m.calls == 1
	m.mu.Unlock()

	if m.started != nil && first {
		close(m.started)
	}
	if m.release != nil {
		<-m.release
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	if m.out != "" {
		return m.out, nil
	}
	return query, nil
}

func (m *mockRewriter) Healthy(context.Context) bool { return true }

func (m *mockRewriter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Tests ---

func TestRouter_LocalServesDirectly(t *testing.T) {
	local := &mockRewriter{out: "standalone query"}
	cloud := &mockRewriter{out: "cloud query"}
	r := NewRouter(local, cloud, zap.NewNop())

	res := r.Rewrite(context.Background(), "follow-up?", nil)

	if res.Query != "standalone query" {
		t.Errorf("query = %q, want local output", res.Query)
	}
	if res.Backend != domain.BackendLocal || res.Decision != domain.DecisionLocal {
		t.Errorf("got backend=%s decision=%s, want local/local", res.Backend, res.Decision)
	}
	if cloud.callCount() != 0 {
		t.Error("cloud must not be called when local succeeds")
	}
	if r.InFlight() != 0 {
		t.Errorf("in-flight counter = %d, want 0", r.InFlight())
	}
}

func TestRouter_SpilloverAtDepthOne(t *testing.T) {
	// With max_queue_depth=1, two concurrent calls: exactly one routed to
	// local, the other spilled over to cloud. Never both local.
	started := make(chan struct{})
	releaseLocal := make(chan struct{})
	local := &mockRewriter{out: "local out", started: started, release: releaseLocal}
	cloud := &mockRewriter{out: "cloud out"}
	r := NewRouter(local, cloud, zap.NewNop()).WithMaxDepth(1)

	results := make(chan domain.RewriteResult, 2)
	go func() {
		results <- r.Rewrite(context.Background(), "first", nil)
	}()

	<-started // first call holds the only local slot

	go func() {
		results <- r.Rewrite(context.Background(), "second", nil)
	}()

	second := <-results
	if second.Decision != domain.DecisionSpillover || second.Backend != domain.BackendCloud {
		t.Errorf("second call: got decision=%s backend=%s, want spillover/cloud", second.Decision, second.Backend)
	}

	close(releaseLocal)
	first := <-results
	if first.Decision != domain.DecisionLocal {
		t.Errorf("first call: got decision=%s, want local", first.Decision)
	}

	if local.callCount() != 1 {
		t.Errorf("local called %d times, want exactly 1", local.callCount())
	}
	if r.InFlight() != 0 {
		t.Errorf("in-flight counter = %d, want 0", r.InFlight())
	}
}

func TestRouter_TimeoutFailover(t *testing.T) {
	local := &mockRewriter{out: "too late", delay: time.Second}
	cloud := &mockRewriter{out: "cloud out"}
	r := NewRouter(local, cloud, zap.NewNop()).WithLocalTimeout(20 * time.Millisecond)

	before := r.InFlight()
	res := r.Rewrite(context.Background(), "slow one", nil)

	if res.Backend != domain.BackendCloud || res.Decision != domain.DecisionTimeoutFailover {
		t.Errorf("got backend=%s decision=%s, want cloud/timeout_failover", res.Backend, res.Decision)
	}

	// The slot is released once the local call observes cancellation.
	deadline := time.After(time.Second)
	for r.InFlight() != before {
		select {
		case <-deadline:
			t.Fatalf("in-flight counter = %d, want %d", r.InFlight(), before)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRouter_ErrorFailover(t *testing.T) {
	local := &mockRewriter{err: errors.New("model not loaded")}
	cloud := &mockRewriter{out: "cloud out"}
	r := NewRouter(local, cloud, zap.NewNop())

	res := r.Rewrite(context.Background(), "q", nil)

	if res.Backend != domain.BackendCloud || res.Decision != domain.DecisionErrorFailover {
		t.Errorf("got backend=%s decision=%s, want cloud/error_failover", res.Backend, res.Decision)
	}
	if r.InFlight() != 0 {
		t.Errorf("in-flight counter = %d, want 0", r.InFlight())
	}
}

func TestRouter_DegradesToOriginalQuery(t *testing.T) {
	local := &mockRewriter{err: errors.New("local down")}
	cloud := &mockRewriter{err: errors.New("cloud down")}
	r := NewRouter(local, cloud, zap.NewNop())

	res := r.Rewrite(context.Background(), "original question", nil)

	if res.Query != "original question" {
		t.Errorf("query = %q, want original passthrough", res.Query)
	}
	if res.Backend != domain.BackendNone || res.Decision != domain.DecisionDegraded {
		t.Errorf("got backend=%s decision=%s, want none/degraded", res.Backend, res.Decision)
	}
}

func TestRouter_SentinelPassesThrough(t *testing.T) {
	local := &mockRewriter{out: domain.NoSearchNeeded}
	cloud := &mockRewriter{}
	r := NewRouter(local, cloud, zap.NewNop())

	res := r.Rewrite(context.Background(), "thanks!", nil)

	if !res.NoSearch() {
		t.Errorf("expected sentinel passthrough, got %q", res.Query)
	}
}

func TestRouter_CounterNeverExceedsDepth(t *testing.T) {
	release := make(chan struct{})
	local := &mockRewriter{out: "ok", release: release}
	cloud := &mockRewriter{out: "cloud"}
	r := NewRouter(local, cloud, zap.NewNop()).WithMaxDepth(2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Rewrite(context.Background(), "q", nil)
		}()
	}

	// Give the goroutines a moment to contend for slots.
	time.Sleep(20 * time.Millisecond)
	if got := r.InFlight(); got > 2 {
		t.Errorf("in-flight counter = %d, must never exceed max depth 2", got)
	}

	close(release)
	wg.Wait()
	if r.InFlight() != 0 {
		t.Errorf("in-flight counter = %d after drain, want 0", r.InFlight())
	}
}
