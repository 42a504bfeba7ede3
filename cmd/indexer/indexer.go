// Command indexer loads or rebuilds the persisted vector index without
// starting the API server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docbot-rag/internal/ai"
	"docbot-rag/internal/app"
	"docbot-rag/internal/config"
	"docbot-rag/internal/logger"
	"docbot-rag/internal/telemetry"
)

func main() {
	rebuild := flag.Bool("rebuild", false, "rebuild the index even if a compatible one is persisted")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	logger.InitLogger(cfg.GinMode)

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Printf("⚠️  Metrics disabled: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	log.Println("🚀 Starting indexer...")
	log.Printf("   Corpus: %s", cfg.PDFPath)
	log.Printf("   Store: %s", store.Location())
	log.Printf("   Embeddings: %s", embedder.Model())
	log.Printf("   Chunking: %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)

	build := builder.LoadOrBuild
	if *rebuild {
		build = builder.Rebuild
	}
	idx, report, err := build(ctx)
	if err != nil {
		log.Printf("❌ Index build failed: %v", err)
		os.Exit(1)
	}

	log.Printf("✅ Index %s ready (%s)", idx.ID, report.Mode)
	log.Printf("   Pages: %d", report.Pages)
	log.Printf("   Chunks: %d", idx.Len())
	log.Printf("   Dimension: %d", idx.Dimension)
	log.Printf("   Took: %s", report.Duration.Round(time.Millisecond))
}
