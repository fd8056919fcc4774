package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/loreline/answerd/internal/config"
	dbRedis "github.com/loreline/answerd/internal/db/redis"
	logpkg "github.com/loreline/answerd/internal/logger"
	"github.com/loreline/answerd/internal/metrics"
	denserepo "github.com/loreline/answerd/internal/repository/dense"
	semcacherepo "github.com/loreline/answerd/internal/repository/semcache"
	chiTransport "github.com/loreline/answerd/internal/transport/chi"
	"github.com/loreline/answerd/internal/transport/ollama"
	openaiTransport "github.com/loreline/answerd/internal/transport/openai"
	answeruc "github.com/loreline/answerd/internal/usecase/answer"
	cacheuc "github.com/loreline/answerd/internal/usecase/cache"
	expanduc "github.com/loreline/answerd/internal/usecase/expand"
	healthuc "github.com/loreline/answerd/internal/usecase/health"
	ingestuc "github.com/loreline/answerd/internal/usecase/ingest"
	reranksvc "github.com/loreline/answerd/internal/usecase/rerank"
	retrieveuc "github.com/loreline/answerd/internal/usecase/retrieve"
	rewriteuc "github.com/loreline/answerd/internal/usecase/rewrite"
	"github.com/loreline/answerd/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting answerd API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Embedding provider shared by the cache key path, the dense index and
	// corpus ingestion.
	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Two-tier rewriter: local Ollama under admission control, cloud failover.
	localRewriter := ollama.New(&ollama.Config{
		BaseURL:     cfg.Rewrite.Local.BaseURL,
		Model:       cfg.Rewrite.Local.Model,
		Temperature: float32(cfg.Rewrite.Local.Temperature),
		MaxTokens:   cfg.Rewrite.Local.MaxTokens,
		Logger:      logger,
	})
	cloudRewriter := openaiTransport.NewRewriter(&openaiTransport.RewriterConfig{
		APIKey:      cfg.Rewrite.Cloud.APIKey,
		BaseURL:     cfg.Rewrite.Cloud.BaseURL,
		Model:       cfg.Rewrite.Cloud.Model,
		Temperature: float32(cfg.Rewrite.Cloud.Temperature),
		MaxTokens:   cfg.Rewrite.Cloud.MaxTokens,
		Logger:      logger,
	})
	router := rewriteuc.NewRouter(localRewriter, cloudRewriter, logger).
		WithMaxDepth(cfg.Rewrite.MaxQueueDepth).
		WithLocalTimeout(time.Duration(cfg.Rewrite.LocalTimeoutSec * float64(time.Second)))

	// Semantic cache over its own vector index.
	cacheRepo := semcacherepo.New(store, cfg.Cache.KeyPrefix).
		WithHNSW(cfg.Cache.HNSWM, cfg.Cache.HNSWEFConstruct)
	cacheSvc := cacheuc.New(cacheRepo, cfg.Cache.SimilarityThreshold, cfg.Cache.VectorDim, logger)

	// Hybrid retrieval: dense KNN plus in-memory BM25, optional expansion and
	// reranking.
	denseRepo := denserepo.New(store, embedder, cfg.Retrieval.KeyPrefix, cfg.Embedding.Dimensions)

	var paraphraser expanduc.Paraphraser
	if cfg.Retrieval.LLMExpansion {
		paraphraser = openaiTransport.NewParaphraser(&openaiTransport.ParaphraserConfig{
			APIKey:  cfg.Rewrite.Cloud.APIKey,
			BaseURL: cfg.Rewrite.Cloud.BaseURL,
			Model:   cfg.Rewrite.Cloud.Model,
			Logger:  logger,
		})
	}
	expander := expanduc.New(cfg.Retrieval.Synonyms, paraphraser, retrievalVariantLimit(cfg), logger)

	var scorer reranksvc.Scorer
	if cfg.Retrieval.RerankEnabled {
		scorer = openaiTransport.NewScorer(&openaiTransport.ScorerConfig{
			APIKey:  cfg.Generation.APIKey,
			BaseURL: cfg.Generation.BaseURL,
			Model:   cfg.Generation.Model,
			Logger:  logger,
		})
	}
	reranker := reranksvc.New(scorer, cfg.Retrieval.RerankEnabled, logger)

	retriever := retrieveuc.New(denseRepo, logger).
		WithExpander(expander).
		WithReranker(reranker).
		WithConcurrentFanout(cfg.Retrieval.ConcurrentFanout).
		WithPerVariantK(cfg.Retrieval.PerVariantK)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		Temperature: float32(cfg.Generation.Temperature),
		MaxTokens:   cfg.Generation.MaxTokens,
		Logger:      logger,
	})

	answerSvc := answeruc.New(router, embedder, cacheSvc, retriever, generator, logger).
		WithTopK(cfg.Retrieval.TopK)
	ingestSvc := ingestuc.New(embedder, denseRepo, retriever, cfg.Embedding.Dimensions, logger)
	healthSvc := healthuc.New(store, embedder, localRewriter)

	server := chiTransport.NewServer(answerSvc, ingestSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// retrievalVariantLimit picks the expansion cap matching the fan-out mode.
func retrievalVariantLimit(cfg config.Config) int {
	if cfg.Retrieval.ConcurrentFanout {
		return 3
	}
	return 5
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
