package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docbot-rag/internal/ai"
	"docbot-rag/internal/app"
	"docbot-rag/internal/config"
	"docbot-rag/internal/logger"
	"docbot-rag/internal/rag"
	"docbot-rag/internal/telemetry"
	"docbot-rag/middleware"
	"docbot-rag/routes"
	"docbot-rag/services"
	"docbot-rag/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration; a missing LLM key is fatal here.
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logger.InitLogger(cfg.GinMode)

	if cfg.OTelEnabled {
		shutdown, err := telemetry.InitTracer(telemetry.TracerConfig{
			ServiceName: cfg.ServiceName,
			Endpoint:    cfg.OTelEndpoint,
			SampleRatio: cfg.OTelSampleRatio,
			Environment: cfg.GinMode,
		})
		if err != nil {
			log.Printf("⚠️  Tracing disabled: %v", err)
		} else {
			defer shutdown()
		}
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Printf("⚠️  Metrics disabled: %v", err)
	}

	ctx := context.Background()

	llm, err := ai.NewLLMClient(ctx, cfg, metrics)
	if err != nil {
		log.Fatal("Failed to initialize LLM client: ", err)
	}
	defer llm.Close()

	embedder, err := ai.NewEmbedder(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize embeddings: ", err)
	}
	defer embedder.Close()

	store, closeStore, err := app.NewIndexStore(cfg)
	if err != nil {
		log.Fatal("Failed to open index store: ", err)
	}
	defer closeStore()

	builder, err := app.NewBuilder(cfg, embedder, store, metrics)
	if err != nil {
		log.Fatal("Failed to create index builder: ", err)
	}

	log.Printf("📚 Loading vector index from %s", store.Location())
	idx, report, err := builder.LoadOrBuild(ctx)
	if err != nil {
		log.Fatal("Failed to load or build vector index: ", err)
	}
	log.Printf("✅ Vector index %s: %d chunks (%s in %s)", idx.ID, idx.Len(), report.Mode, report.Duration.Round(time.Millisecond))

	// Redis is optional: without it retrieval is uncached and rate limiting
	// is per process.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = config.NewRedisClient(cfg)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, continuing without cache: %v", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	retrieverOpts := []rag.RetrieverOption{rag.WithMetrics(metrics)}
	if rdb != nil {
		retrieverOpts = append(retrieverOpts, rag.WithCache(rag.NewRedisCache(rdb, cfg.RetrievalCacheTTL)))
	}
	retriever := rag.NewRetriever(idx, embedder, cfg.RetrievalK, retrieverOpts...)
	svc := services.NewMedicalService(cfg, retriever, llm, metrics)

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", "request_id", middleware.GetRequestID(c), "panic", recovered)
		utils.RespondWithInternalError(c, "Internal server error", nil)
	}))
	router.Use(middleware.RequestIDMiddleware())
	if cfg.OTelEnabled {
		router.Use(middleware.TracingMiddleware(cfg.ServiceName))
		router.Use(middleware.EnrichTrace())
	}
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))
	router.Use(middleware.RequestSizeLimit(cfg.MaxBodySize))

	limits := middleware.RateLimitConfig{
		Requests: cfg.RateLimitReqs,
		Window:   time.Duration(cfg.RateLimitWindow) * time.Second,
	}
	if limits.Requests > 0 {
		if rdb != nil {
			router.Use(middleware.RateLimitMiddleware(rdb, limits))
		} else {
			router.Use(middleware.LocalRateLimitMiddleware(limits))
		}
	}

	routes.SetupMedicalRoutes(router, svc)

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 DocBot RAG server starting on port %s (LLM %s)", cfg.Port, llm.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
