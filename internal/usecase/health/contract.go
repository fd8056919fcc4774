package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// RewriteChecker reports rewrite backend availability.
type RewriteChecker interface {
	Healthy(ctx context.Context) bool
}
