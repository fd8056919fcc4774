package config

import "testing"

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{
			APIKey: "test-key",
			Model:  "test-embed",
		},
		Rewrite: RewriteConfig{
			Local: LocalModelConfig{Model: "qwen2.5:1.5b"},
			Cloud: CloudModelConfig{APIKey: "test-key", Model: "gpt-4o-mini"},
		},
		Generation: GenerationConfig{Model: "gpt-4o-mini"},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }},
		{"missing addrs", func(c *Config) { c.Database.Addrs = nil }},
		{"missing embedding key", func(c *Config) { c.Embedding.APIKey = "" }},
		{"missing embedding model", func(c *Config) { c.Embedding.Model = "" }},
		{"missing cloud key", func(c *Config) { c.Rewrite.Cloud.APIKey = "" }},
		{"missing cloud model", func(c *Config) { c.Rewrite.Cloud.Model = "" }},
		{"missing local model", func(c *Config) { c.Rewrite.Local.Model = "" }},
		{"missing generation model", func(c *Config) { c.Generation.Model = "" }},
		{"threshold above one", func(c *Config) { c.Cache.SimilarityThreshold = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if cfg.Rewrite.MaxQueueDepth != 3 {
		t.Errorf("max_queue_depth default: got %d, want 3", cfg.Rewrite.MaxQueueDepth)
	}
	if cfg.Rewrite.LocalTimeoutSec != 2.0 {
		t.Errorf("local_timeout_sec default: got %f, want 2.0", cfg.Rewrite.LocalTimeoutSec)
	}
	if cfg.Cache.SimilarityThreshold != 0.92 {
		t.Errorf("similarity_threshold default: got %f, want 0.92", cfg.Cache.SimilarityThreshold)
	}
	if cfg.Cache.VectorDim != 1024 {
		t.Errorf("vector_dim default: got %d, want 1024", cfg.Cache.VectorDim)
	}
	if cfg.Retrieval.TopK != 10 {
		t.Errorf("top_k default: got %d, want 10", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.PerVariantK != 20 {
		t.Errorf("per_variant_k default: got %d, want 20", cfg.Retrieval.PerVariantK)
	}
	if cfg.Cache.KeyPrefix != "answerd:cache:" {
		t.Errorf("cache key_prefix default: got %q", cfg.Cache.KeyPrefix)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("ANSWERD_TEST_KEY", "secret")

	in := []byte("api_key: ${ANSWERD_TEST_KEY}\nurl: ${ANSWERD_MISSING:-http://fallback}")
	out := string(expandEnvVars(in))

	want := "api_key: secret\nurl: http://fallback"
	if out != want {
		t.Errorf("expandEnvVars:\n got %q\nwant %q", out, want)
	}
}
