package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the answerd API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Rewrite    RewriteConfig    `yaml:"rewrite"`
	Cache      CacheConfig      `yaml:"cache"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// LocalModelConfig holds the local (Ollama-style) rewrite collaborator settings.
type LocalModelConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// CloudModelConfig holds the cloud (OpenAI-compatible) model settings.
type CloudModelConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// RewriteConfig holds the inference router settings.
type RewriteConfig struct {
	MaxQueueDepth   int              `yaml:"max_queue_depth"`   // local in-flight slots (default 3)
	LocalTimeoutSec float64          `yaml:"local_timeout_sec"` // default 2.0
	Local           LocalModelConfig `yaml:"local"`
	Cloud           CloudModelConfig `yaml:"cloud"`
}

// CacheConfig holds semantic cache settings.
type CacheConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"` // default 0.92
	VectorDim           int     `yaml:"vector_dim"`           // default 1024
	KeyPrefix           string  `yaml:"key_prefix"`
	HNSWM               int     `yaml:"hnsw_m"`
	HNSWEFConstruct     int     `yaml:"hnsw_ef_construction"`
}

// RetrievalConfig holds hybrid retrieval settings.
type RetrievalConfig struct {
	TopK             int                 `yaml:"top_k"`          // final result count (default 10)
	PerVariantK      int                 `yaml:"per_variant_k"`  // sparse/dense depth per variant (default 20)
	ConcurrentFanout bool                `yaml:"concurrent_fanout"`
	RerankEnabled    bool                `yaml:"rerank_enabled"`
	Synonyms         map[string][]string `yaml:"synonyms"`
	LLMExpansion     bool                `yaml:"llm_expansion"`
	KeyPrefix        string              `yaml:"key_prefix"`
}

// EmbeddingConfig holds embedding collaborator settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// GenerationConfig holds the answer generation model settings.
type GenerationConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Rewrite.MaxQueueDepth <= 0 {
		c.Rewrite.MaxQueueDepth = 3
	}
	if c.Rewrite.LocalTimeoutSec <= 0 {
		c.Rewrite.LocalTimeoutSec = 2.0
	}
	if c.Rewrite.Local.BaseURL == "" {
		c.Rewrite.Local.BaseURL = "http://localhost:11434"
	}
	if c.Rewrite.Local.MaxTokens <= 0 {
		c.Rewrite.Local.MaxTokens = 128
	}
	if c.Rewrite.Cloud.MaxTokens <= 0 {
		c.Rewrite.Cloud.MaxTokens = 128
	}
	if c.Cache.SimilarityThreshold <= 0 {
		c.Cache.SimilarityThreshold = 0.92
	}
	if c.Cache.VectorDim <= 0 {
		c.Cache.VectorDim = 1024
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "answerd:cache:"
	}
	if c.Cache.HNSWM <= 0 {
		c.Cache.HNSWM = 32
	}
	if c.Cache.HNSWEFConstruct <= 0 {
		c.Cache.HNSWEFConstruct = 400
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 10
	}
	if c.Retrieval.PerVariantK <= 0 {
		c.Retrieval.PerVariantK = 20
	}
	if c.Retrieval.KeyPrefix == "" {
		c.Retrieval.KeyPrefix = "answerd:docs:"
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 1024
	}
}

// Validate checks the configuration for correctness. Missing required
// credentials are a startup failure, before serving begins.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Rewrite.Cloud.APIKey == "" {
		return fmt.Errorf("rewrite.cloud.api_key is required")
	}
	if c.Rewrite.Cloud.Model == "" {
		return fmt.Errorf("rewrite.cloud.model is required")
	}
	if c.Rewrite.Local.Model == "" {
		return fmt.Errorf("rewrite.local.model is required")
	}
	if c.Cache.SimilarityThreshold > 1 {
		return fmt.Errorf("cache.similarity_threshold must be <= 1, got %f", c.Cache.SimilarityThreshold)
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
