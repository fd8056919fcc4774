package rewrite

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/loreline/answerd/internal/domain"
	"github.com/loreline/answerd/internal/metrics"
)

// Admission-control defaults.
const (
	defaultMaxDepth     = 3
	defaultLocalTimeout = 2 * time.Second
)

// Router admission-controls and fails over between the local and cloud
// rewrite backends. The in-flight counter is the only shared mutable state;
// all reads and mutations happen under one mutex so the admission check and
// the increments/decrements are linearizable.
type Router struct {
	local        Rewriter
	cloud        Rewriter
	maxDepth     int
	localTimeout time.Duration
	logger       *zap.Logger

	mu       sync.Mutex
	inFlight int
}

// NewRouter creates an inference router with default admission settings.
func NewRouter(local, cloud Rewriter, logger *zap.Logger) *Router {
	return &Router{
		local:        local,
		cloud:        cloud,
		maxDepth:     defaultMaxDepth,
		localTimeout: defaultLocalTimeout,
		logger:       logger,
	}
}

// WithMaxDepth overrides the local in-flight slot count.
func (r *Router) WithMaxDepth(n int) *Router {
	if n > 0 {
		r.maxDepth = n
	}
	return r
}

// WithLocalTimeout overrides the local rewrite deadline.
func (r *Router) WithLocalTimeout(d time.Duration) *Router {
	if d > 0 {
		r.localTimeout = d
	}
	return r
}

// InFlight returns the current local in-flight count.
func (r *Router) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

// Rewrite routes one rewrite request. It always produces a query: if both
// backends fail, the original query passes through with backend "none".
// The sentinel NO_SEARCH_NEEDED passes through unchanged; the router does
// not itself decide search necessity.
func (r *Router) Rewrite(ctx context.Context, query string, history []domain.Turn) domain.RewriteResult {
	start := time.Now()

	res := r.route(ctx, query, history)
	res.Latency = time.Since(start)

	metrics.RewriteDecisionsTotal.WithLabelValues(string(res.Decision)).Inc()
	metrics.RewriteDuration.WithLabelValues(string(res.Backend)).Observe(res.Latency.Seconds())

	r.logger.Debug("rewrite routed",
		zap.String("decision", string(res.Decision)),
		zap.String("backend", string(res.Backend)),
		zap.Duration("latency", res.Latency),
	)
	return res
}

// route expresses the Local -> Cloud -> original-query fallback ladder as a
// linear switch over the local outcome.
func (r *Router) route(ctx context.Context, query string, history []domain.Turn) domain.RewriteResult {
	if !r.tryAcquire() {
		// Local capacity saturated: spill over to cloud immediately rather
		// than queue, trading a cloud call for bounded local latency.
		return r.viaCloud(ctx, query, history, domain.DecisionSpillover)
	}

	out, err := r.callLocal(ctx, query, history)

	switch {
	case err == nil:
		return domain.RewriteResult{Query: out, Backend: domain.BackendLocal, Decision: domain.DecisionLocal}
	case errors.Is(err, context.DeadlineExceeded):
		return r.viaCloud(ctx, query, history, domain.DecisionTimeoutFailover)
	default:
		r.logger.Warn("local rewrite failed", zap.Error(err))
		return r.viaCloud(ctx, query, history, domain.DecisionErrorFailover)
	}
}

// callLocal invokes the local backend under the configured deadline. On
// timeout the call is not forcibly interrupted: it may complete and have its
// result discarded, but the reserved slot is released on every exit path.
func (r *Router) callLocal(ctx context.Context, query string, history []domain.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.localTimeout)

	type outcome struct {
		out string
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer r.release()
		defer cancel()
		out, err := r.local.Rewrite(ctx, query, history)
		done <- outcome{out: out, err: err}
	}()

	select {
	case o := <-done:
		return o.out, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *Router) viaCloud(ctx context.Context, query string, history []domain.Turn, decision domain.Decision) domain.RewriteResult {
	out, err := r.cloud.Rewrite(ctx, query, history)
	if err != nil {
		// Exhausted fallback: the pipeline must always have a query to
		// retrieve with, so degrade to the original, un-rewritten one.
		r.logger.Warn("cloud rewrite failed, passing original query through", zap.Error(err))
		return domain.RewriteResult{Query: query, Backend: domain.BackendNone, Decision: domain.DecisionDegraded}
	}
	return domain.RewriteResult{Query: out, Backend: domain.BackendCloud, Decision: decision}
}

func (r *Router) tryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight >= r.maxDepth {
		return false
	}
	r.inFlight++
	return true
}

func (r *Router) release() {
	r.mu.Lock()
	if r.inFlight > 0 {
		r.inFlight--
	}
	r.mu.Unlock()
}
