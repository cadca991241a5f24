package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/mihir1816/teaching-content-generator/internal/api/handlers"
	"github.com/mihir1816/teaching-content-generator/internal/cache"
	"github.com/mihir1816/teaching-content-generator/internal/chunking"
	"github.com/mihir1816/teaching-content-generator/internal/embedding"
	"github.com/mihir1816/teaching-content-generator/internal/generation"
	"github.com/mihir1816/teaching-content-generator/internal/ingestion"
	"github.com/mihir1816/teaching-content-generator/internal/llm"
	"github.com/mihir1816/teaching-content-generator/internal/metrics"
	"github.com/mihir1816/teaching-content-generator/internal/middleware/ratelimit"
	"github.com/mihir1816/teaching-content-generator/internal/middleware/security"
	"github.com/mihir1816/teaching-content-generator/internal/pipeline"
	"github.com/mihir1816/teaching-content-generator/internal/plan"
	"github.com/mihir1816/teaching-content-generator/internal/querygen"
	"github.com/mihir1816/teaching-content-generator/internal/retrieval"
	"github.com/mihir1816/teaching-content-generator/internal/storage/sqlite"
	"github.com/mihir1816/teaching-content-generator/internal/vector"
	"github.com/mihir1816/teaching-content-generator/internal/vector/chromem"
	"github.com/mihir1816/teaching-content-generator/internal/vector/memory"
	"github.com/mihir1816/teaching-content-generator/internal/vector/milvus"
	"github.com/mihir1816/teaching-content-generator/pkg/config"
	appLogger "github.com/mihir1816/teaching-content-generator/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Teaching Content Generator API Server")
	metrics.Init()

	store, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer store.Close()

	if err := store.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	index := buildIndex(cfg)

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.TimeoutSec,
	)
	llmClient.OnUsage(func(promptTokens, completionTokens int) {
		metrics.LLMTokensUsed.WithLabelValues("prompt").Add(float64(promptTokens))
		metrics.LLMTokensUsed.WithLabelValues("completion").Add(float64(completionTokens))
	})

	var embedder embedding.Embedder = embedding.NewOpenAIEmbedder(
		cfg.LLM.APIKey,
		cfg.Embedding.Model,
		cfg.Embedding.BatchSize,
		cfg.Embedding.Concurrency,
	)

	if cfg.Redis.Enabled {
		embCache, err := cache.NewEmbeddingCache(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Embedding.CacheTTLSec)*time.Second,
		)
		if err != nil {
			appLogger.Warn("Redis unavailable, embedding cache disabled", zap.Error(err))
		} else {
			defer embCache.Close()
			embedder = embedding.NewCachedEmbedder(embedder, embCache)
		}
	}

	counter, err := chunking.NewTiktokenCounter(cfg.Chunking.Encoding)
	if err != nil {
		appLogger.Fatal("Failed to load token encoding", zap.Error(err))
	}
	splitter := chunking.NewSplitter(chunking.Config{
		TargetTokens:  cfg.Chunking.TargetTokens,
		OverlapTokens: cfg.Chunking.OverlapTokens,
		MinTokens:     cfg.Chunking.MinTokens,
		MaxTokens:     cfg.Chunking.MaxTokens,
	}, counter)

	pipe := pipeline.New(
		store,
		ingestion.NewIngestor(splitter, embedder, index, nil),
		plan.NewGenerator(llmClient),
		querygen.NewGenerator(llmClient, cfg.Retrieval.QueryCount),
		retrieval.NewRetriever(embedder, index, retrieval.Config{
			PerQueryK:   cfg.Retrieval.PerQueryK,
			RRFK:        cfg.Retrieval.RRFK,
			Concurrency: cfg.Retrieval.Concurrency,
		}),
		generation.NewGenerator(llmClient, generation.Config{
			MCQCount: cfg.Generation.MCQCount,
		}),
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{})
	defer limiter.Stop()

	sessionHandler := handlers.NewSessionHandler(pipe)
	ingestHandler := handlers.NewIngestHandler(pipe)
	contentHandler := handlers.NewContentHandler(pipe)

	api := app.Group("/api/v1", limiter.Middleware())

	api.Post("/sessions", sessionHandler.CreateSession)
	api.Post("/sessions/:sessionID/sources", ingestHandler.IngestSource)
	api.Post("/sessions/:sessionID/plan", sessionHandler.GeneratePlan)
	api.Get("/sessions/:sessionID/plan", sessionHandler.GetPlan)
	api.Post("/sessions/:sessionID/plan/regenerate", sessionHandler.RegeneratePlan)
	api.Post("/sessions/:sessionID/plan/approve", sessionHandler.ApprovePlan)
	api.Post("/sessions/:sessionID/content", contentHandler.GenerateContent)
	api.Get("/content/:contentID/deck", contentHandler.GetDeck)

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

// buildIndex selects the vector backend. Milvus needs a running server;
// chromem persists locally; memory is for development only.
func buildIndex(cfg *config.Config) vector.Index {
	switch cfg.Vector.Backend {
	case "milvus":
		client, err := milvus.NewClient(cfg.Vector.Endpoint, cfg.Vector.CollectionName, cfg.Embedding.Dim)
		if err != nil {
			appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
		}
		if err := client.EnsureCollection(context.Background()); err != nil {
			appLogger.Fatal("Failed to ensure Milvus collection", zap.Error(err))
		}
		return vector.WithRetry(client)
	case "memory":
		appLogger.Warn("Using in-memory vector index; data will not survive restarts")
		return memory.NewIndex()
	default:
		store, err := chromem.NewStore(cfg.Vector.ChromemPath)
		if err != nil {
			appLogger.Fatal("Failed to open chromem store", zap.Error(err))
		}
		return vector.WithRetry(store)
	}
}
