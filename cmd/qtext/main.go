package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/qtext/internal/config"
	"github.com/kailas-cloud/qtext/internal/db"
	"github.com/kailas-cloud/qtext/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/qtext/internal/db/redis"
	"github.com/kailas-cloud/qtext/internal/domain"
	logpkg "github.com/kailas-cloud/qtext/internal/logger"
	"github.com/kailas-cloud/qtext/internal/metrics"
	documentrepo "github.com/kailas-cloud/qtext/internal/repository/document"
	"github.com/kailas-cloud/qtext/internal/repository/embcache"
	namespacerepo "github.com/kailas-cloud/qtext/internal/repository/namespace"
	searchrepo "github.com/kailas-cloud/qtext/internal/repository/search"
	"github.com/kailas-cloud/qtext/internal/resilience"
	chiTransport "github.com/kailas-cloud/qtext/internal/transport/chi"
	"github.com/kailas-cloud/qtext/internal/transport/cohere"
	"github.com/kailas-cloud/qtext/internal/transport/crossencoder"
	highlightclient "github.com/kailas-cloud/qtext/internal/transport/highlight"
	"github.com/kailas-cloud/qtext/internal/transport/inference"
	openaiEmb "github.com/kailas-cloud/qtext/internal/transport/openai"
	sparseclient "github.com/kailas-cloud/qtext/internal/transport/sparse"
	documentuc "github.com/kailas-cloud/qtext/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/qtext/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/qtext/internal/usecase/health"
	highlightuc "github.com/kailas-cloud/qtext/internal/usecase/highlight"
	namespaceuc "github.com/kailas-cloud/qtext/internal/usecase/namespace"
	"github.com/kailas-cloud/qtext/internal/usecase/rank"
	searchuc "github.com/kailas-cloud/qtext/internal/usecase/search"
	"github.com/kailas-cloud/qtext/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting qtext API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("schema_preset", cfg.Schema.Preset),
	)

	sch, err := cfg.Schema.Build()
	if err != nil {
		logger.Fatal("Invalid schema", zap.Error(err))
	}

	// Register metrics explicitly (no init())
	metrics.Register()

	ctx := context.Background()
	readyCtx, cancelReady := context.WithTimeout(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second)
	conn, err := postgres.OpenDB(readyCtx, postgres.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
	})
	cancelReady()
	if err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	store := postgres.NewStore(conn, postgres.NewCatalog(sch))
	defer func() { _ = store.Close() }()
	if err := store.Bootstrap(ctx); err != nil {
		logger.Fatal("Failed to bootstrap database", zap.Error(err))
	}
	logger.Info("Connected to database")

	checks := []healthuc.Check{{Name: "postgres", Critical: true, Pinger: store}}

	var cache *dbRedis.Store
	if cfg.Cache.Enabled() {
		cache, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create cache client", zap.Error(err))
		}
		defer cache.Close()
		if err := db.WaitForReady(ctx, cache, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		// the cache is an optimization: a failing Redis degrades, never fails readiness
		checks = append(checks, healthuc.Check{Name: "redis", Pinger: cache})
	}

	var exec inference.Executor
	if cfg.Resilience.Enabled {
		exec = resilience.NewExecutor(cfg.Resilience.Policy(), logger)
	}

	// Dense embedder chain
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	docEmbedder := buildEmbedder(base, cfg, cfg.Embedding.DocumentInstruction, cache, logger)
	queryEmbedder := buildEmbedder(base, cfg, cfg.Embedding.QueryInstruction, cache, logger)
	checks = append(checks, healthuc.Check{Name: "embedding", Pinger: healthuc.PingerFunc(base.HealthCheck)})
	logger.Info("Embedders created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cache != nil),
	)

	// A nil interface (not a typed nil pointer) disables the sparse modality.
	var sparseEmbedder domain.SparseEmbedder
	if cfg.Sparse.Enabled() {
		client := sparseclient.New(newInference("sparse", cfg.Sparse.EndpointConfig, exec, logger), cfg.Sparse.Dim)
		sparseEmbedder = embeddinguc.NewInstrumentedSparse(client, "sparse", logger)
	}

	ranker, err := rank.Build(cfg.Ranker.Steps, rankDeps(cfg, exec, logger))
	if err != nil {
		logger.Fatal("Invalid ranking pipeline", zap.Error(err))
	}

	// Create repositories and use case services
	nsSvc := namespaceuc.New(namespacerepo.New(store), cfg.Embedding.Dimensions, cfg.Sparse.Dim)
	docSvc := documentuc.New(documentrepo.New(store), sch, docEmbedder, sparseEmbedder)
	searchSvc := searchuc.New(searchrepo.New(store, sch), ranker, queryEmbedder, sparseEmbedder)

	services := chiTransport.Services{
		Search:     searchSvc,
		Namespaces: nsSvc,
		Documents:  docSvc,
		Health:     healthuc.New(checks...),
	}
	if cfg.Highlight.Enabled() {
		scorer := highlightclient.New(newInference("highlight", cfg.Highlight, exec, logger))
		services.Highlight = highlightuc.New(scorer)
	}

	server := chiTransport.NewServer(services, sch, logger)
	router := chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
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

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	base domain.Embedder,
	cfg config.Config,
	instruction string,
	cache *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if cache != nil {
		embedder = embcache.New(base, cache, cfg.Embedding.Model,
			time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedDense(embedder, cfg.Embedding.Model, logger)

	// Instruction prefix is outermost, so the cache key includes it
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

func newInference(name string, e config.EndpointConfig, exec inference.Executor, logger *zap.Logger) *inference.Client {
	var header http.Header
	if e.APIKey != "" {
		header = http.Header{"Authorization": []string{"Bearer " + e.APIKey}}
	}
	return inference.New(inference.Config{
		Name:     name,
		BaseURL:  e.URL,
		Timeout:  e.Timeout(),
		Header:   header,
		Executor: exec,
		Logger:   logger,
	})
}

func rankDeps(cfg config.Config, exec inference.Executor, logger *zap.Logger) rank.Deps {
	var deps rank.Deps
	if cfg.Reranker.CrossEncoder.Enabled() {
		deps.CrossEncoder = crossencoder.New(newInference("cross_encoder", cfg.Reranker.CrossEncoder, exec, logger))
	}
	if cfg.Reranker.Cohere.APIKey != "" {
		endpoint := cfg.Reranker.Cohere.EndpointConfig
		if endpoint.URL == "" {
			endpoint.URL = cohere.DefaultBaseURL
		}
		deps.Cohere = cohere.New(newInference("cohere", endpoint, exec, logger), cfg.Reranker.Cohere.Model)
	}
	return deps
}
