// Package app wires configuration into the index components shared by the
// API server and the indexer CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"docbot-rag/internal/config"
	"docbot-rag/internal/rag"
	"docbot-rag/internal/telemetry"
)

// NewIndexStore opens the configured index backend. The returned func
// releases its connection.
func NewIndexStore(cfg *config.Config) (rag.IndexStore, func(), error) {
	switch cfg.IndexBackend {
	case "mongo":
		client, err := config.ConnectMongoDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			client.Disconnect(ctx)
		}
		return rag.NewMongoStore(client.Database(cfg.DBName)), closeFn, nil
	case "file", "":
		return rag.NewFileStore(cfg.VectorStorePath), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown index backend %q", cfg.IndexBackend)
	}
}

// NewBuilder builds an index builder over the configured corpus.
func NewBuilder(cfg *config.Config, embedder rag.Embedder, store rag.IndexStore, metrics *telemetry.Metrics) (*rag.Builder, error) {
	return rag.NewBuilder(rag.BuildConfig{
		SourcePath:   cfg.PDFPath,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		BatchSize:    cfg.EmbedBatchSize,
		Workers:      cfg.EmbedWorkers,
	}, rag.FileLoader{}, embedder, store, metrics)
}
