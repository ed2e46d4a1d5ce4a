package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"manualqa/internal/config"
	"manualqa/internal/database/minio"
	"manualqa/internal/database/mysql"
	"manualqa/internal/database/redis"
	"manualqa/internal/manual_qa/api"
	"manualqa/internal/manual_qa/dal"
	"manualqa/internal/manual_qa/rag/chunker"
	"manualqa/internal/manual_qa/rag/embeddings"
	"manualqa/internal/manual_qa/rag/extractor"
	"manualqa/internal/manual_qa/rag/generator"
	"manualqa/internal/manual_qa/rag/interfaces"
	"manualqa/internal/manual_qa/rag/keywords"
	"manualqa/internal/manual_qa/rag/pipeline"
	"manualqa/internal/manual_qa/rag/retriever"
	"manualqa/internal/manual_qa/rag/splitter"
	"manualqa/internal/manual_qa/rag/storages/blobstore"
	"manualqa/internal/manual_qa/rag/storages/docstore"
	"manualqa/internal/manual_qa/service"
	"manualqa/pkg/logger"
	"manualqa/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Initialize Logger
	logger.Init(logrus.InfoLevel)
	appLogger := logger.New("ManualQAService", "")
	appLogger.Info("Starting Manual QA Service...")

	// 2. Load Configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if level, parseErr := logrus.ParseLevel(cfg.Logger.Level); parseErr == nil {
		logger.Init(level)
	}
	appLogger.Info("Configuration loaded successfully.")

	// 3. Initialize Storage
	var store interfaces.DocumentStore
	switch cfg.Storage.Backend {
	case "memory":
		store = docstore.NewInMemoryStore()
		appLogger.Info("Using in-memory document store.")
	default:
		db, dbErr := mysql.GetDB(&cfg.Databases.MySQL)
		if dbErr != nil {
			log.Fatalf("Failed to connect to MySQL: %v", dbErr)
		}
		documentDAL := dal.NewDocumentDAL(db)
		if migrateErr := documentDAL.AutoMigrate(); migrateErr != nil {
			log.Fatalf("Failed to migrate schema: %v", migrateErr)
		}
		store = documentDAL
	}

	// 4. Initialize Optional Blob Archival
	var blobs interfaces.BlobStore
	if cfg.Databases.MinIO.Enabled {
		minioClient, minioErr := minio.GetClient(&cfg.Databases.MinIO)
		if minioErr != nil {
			log.Fatalf("Failed to connect to MinIO: %v", minioErr)
		}
		blobs = blobstore.NewMinioStore(minioClient, cfg.Databases.MinIO.Bucket)
	}

	// 5. Initialize the Keyword Tagger
	var tagger interfaces.KeywordTagger
	if cfg.Keywords.Deterministic {
		tagger = keywords.NewDeterministic()
	} else {
		tagger = keywords.NewTagger()
	}

	// 6. Initialize the Embedding Provider (optional)
	embedder := buildEmbedder(cfg, appLogger)

	// 7. Initialize the Answer Generator and its Availability tracker
	gen, prober := buildGenerator(cfg)
	avail := generator.NewAvailability(prober)
	state, reason := avail.Refresh(context.Background())
	appLogger.WithPayload(map[string]interface{}{
		"state":  string(state),
		"reason": reason,
	}).Info("Generator availability probed.")

	// 8. Assemble the Pipelines
	profile := chunker.ProfileByName(cfg.Chunking.Profile)
	ingestion := pipeline.NewIngestionPipeline(
		extractor.NewPdfExtractor(),
		splitter.NewSectionSplitter(),
		chunker.NewPassageChunker(profile),
		tagger,
		embedder,
		store,
		blobs,
		appLogger,
	)
	weights := retriever.Weights{
		Keyword:         cfg.Retrieval.KeywordWeight,
		Semantic:        cfg.Retrieval.SemanticWeight,
		HybridThreshold: cfg.Retrieval.HybridThreshold,
	}
	if weights.Keyword == 0 && weights.Semantic == 0 {
		weights = retriever.DefaultWeights()
	}
	hybrid := retriever.NewHybridRetriever(tagger, embedder, weights, appLogger)
	timeout := time.Duration(cfg.Generator.TimeoutSeconds) * time.Second
	query := pipeline.NewQueryPipeline(hybrid, gen, avail, store, cfg.Retrieval.TopK, timeout, appLogger)

	// 9. Create the Service and HTTP Router
	svc := service.New(ingestion, query, avail, store, appLogger)
	checks := map[string]api.HealthCheck{}
	if cfg.Storage.Backend != "memory" {
		checks["mysql"] = mysql.HealthCheck
	}
	if cfg.Databases.Redis.Enabled {
		checks["redis"] = redis.HealthCheck
	}
	if cfg.Databases.MinIO.Enabled {
		checks["minio"] = minio.HealthCheck
	}
	router := gin.Default()
	handler := api.NewHandler(svc, appLogger, checks)
	var middlewares []gin.HandlerFunc
	if cfg.Middleware.RateLimiter.Enabled {
		bucket := ratelimiter.NewTokenBucket(cfg.Middleware.RateLimiter.Rate, cfg.Middleware.RateLimiter.Capacity)
		middlewares = append(middlewares, api.RateLimit(bucket))
	}
	api.RegisterRoutes(router, handler, middlewares...)

	// 10. Start the HTTP Server with graceful shutdown
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}
	go func() {
		appLogger.Info("HTTP server listening on " + cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down Manual QA Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("HTTP server shutdown failed.")
	}
	if cfg.Storage.Backend != "memory" {
		if err := mysql.Close(); err != nil {
			appLogger.WithError(err).Error("MySQL close failed.")
		}
	}
	if cfg.Databases.Redis.Enabled {
		if err := redis.Close(); err != nil {
			appLogger.WithError(err).Error("Redis close failed.")
		}
	}
	appLogger.Info("Manual QA Service stopped.")
}

// buildEmbedder creates the configured word-embedding provider, wrapped in the
// Redis cache when that is enabled. It returns nil when embeddings are off;
// retrieval then degrades to lexical scoring.
func buildEmbedder(cfg *config.AppConfig, appLogger *logger.Logger) interfaces.EmbeddingProvider {
	var embedder interfaces.EmbeddingProvider
	switch cfg.Embedding.Provider {
	case "gemini":
		p, err := embeddings.NewGoogleProvider(context.Background(), cfg.Embedding.Gemini.APIKey, cfg.Embedding.Gemini.Model)
		if err != nil {
			log.Fatalf("Failed to create Gemini embedding provider: %v", err)
		}
		embedder = p
	case "ollama":
		p, err := embeddings.NewOllamaProvider(cfg.Embedding.Ollama.Host, cfg.Embedding.Ollama.Model)
		if err != nil {
			log.Fatalf("Failed to create Ollama embedding provider: %v", err)
		}
		embedder = p
	default:
		return nil
	}

	ttl := time.Duration(cfg.Embedding.CacheTTL) * time.Second
	if cfg.Databases.Redis.Enabled {
		rdb, err := redis.GetClient(&cfg.Databases.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		return embeddings.NewCached(embedder, rdb, ttl, appLogger)
	}
	cached, err := embeddings.NewMemoryCached(embedder, ttl)
	if err != nil {
		log.Fatalf("Failed to create embedding cache: %v", err)
	}
	return cached
}

// buildGenerator creates the configured answer generator and the prober that
// reports its availability. A disabled generator still yields a non-nil
// prober so the availability endpoint has something honest to report.
func buildGenerator(cfg *config.AppConfig) (interfaces.AnswerGenerator, generator.Prober) {
	if !cfg.Generator.Enabled {
		return nil, generator.StaticProber{
			State:  generator.StateDisabled,
			Reason: "generation disabled in configuration",
		}
	}
	switch cfg.Generator.Provider {
	case "gemini":
		g, err := generator.NewGemini(context.Background(), cfg.Generator.Gemini.APIKey, cfg.Generator.Gemini.Model)
		if err != nil {
			log.Fatalf("Failed to create Gemini generator: %v", err)
		}
		return g, g
	case "ollama":
		g, err := generator.NewOllama(cfg.Generator.Ollama.Host, cfg.Generator.Ollama.Model)
		if err != nil {
			log.Fatalf("Failed to create Ollama generator: %v", err)
		}
		return g, g
	default:
		return nil, generator.StaticProber{
			State:  generator.StateUnavailable,
			Reason: "unknown generator provider " + cfg.Generator.Provider,
		}
	}
}
