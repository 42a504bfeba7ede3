package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docbot-rag/internal/logger"
	"docbot-rag/internal/telemetry"
	"docbot-rag/utils"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Embedder is the subset of the embedding provider the index needs.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// BuildMode reports how LoadOrBuild obtained the index.
type BuildMode string

const (
	ModeLoaded  BuildMode = "loaded"
	ModeRebuilt BuildMode = "rebuilt"
)

type BuildConfig struct {
	SourcePath   string
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	Workers      int
}

// BuildReport summarizes a build for logs and the indexer CLI.
type BuildReport struct {
	Mode     BuildMode
	Pages    int
	Chunks   int
	Duration time.Duration
	Manifest Manifest
}

// Builder loads a persisted index or rebuilds it from the corpus.
type Builder struct {
	cfg      BuildConfig
	loader   Loader
	chunker  *Chunker
	embedder Embedder
	store    IndexStore
	metrics  *telemetry.Metrics
}

func NewBuilder(cfg BuildConfig, loader Loader, embedder Embedder, store IndexStore, metrics *telemetry.Metrics) (*Builder, error) {
	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Builder{
		cfg:      cfg,
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		metrics:  metrics,
	}, nil
}

// LoadOrBuild returns the persisted index when it is readable and was built
// with the current embedding model and chunking settings; otherwise it
// rebuilds synchronously. A rebuild error is returned as is.
func (b *Builder) LoadOrBuild(ctx context.Context) (*Index, BuildReport, error) {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "rag.load_or_build")
	defer span.End()

	idx, m, err := b.store.Load(ctx)
	if err == nil {
		err = b.compatible(m)
	}
	if err == nil {
		report := BuildReport{Mode: ModeLoaded, Chunks: idx.Len(), Duration: time.Since(start), Manifest: m}
		span.SetAttributes(attribute.String("index.mode", string(ModeLoaded)))
		b.metrics.RecordIndexBuild(report.Duration.Seconds(), string(ModeLoaded), "ok")
		logger.Info("vector index loaded", "location", b.store.Location(), "index_id", m.IndexID, "chunks", idx.Len())
		return idx, report, nil
	}

	if errors.Is(err, ErrIndexNotFound) {
		logger.Info("no persisted vector index, building", "location", b.store.Location())
	} else {
		logger.Warn("persisted vector index unusable, rebuilding", "location", b.store.Location(), "error", err)
	}
	span.SetAttributes(attribute.String("index.mode", string(ModeRebuilt)))
	return b.Rebuild(ctx)
}

// Rebuild runs Loader, Chunker and Embedder, then persists the result.
func (b *Builder) Rebuild(ctx context.Context) (*Index, BuildReport, error) {
	start := time.Now()
	idx, report, err := b.rebuild(ctx)
	report.Mode = ModeRebuilt
	report.Duration = time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	b.metrics.RecordIndexBuild(report.Duration.Seconds(), string(ModeRebuilt), status)
	return idx, report, err
}

func (b *Builder) rebuild(ctx context.Context) (*Index, BuildReport, error) {
	var report BuildReport

	pages, err := b.loader.Load(ctx, b.cfg.SourcePath)
	if err != nil {
		return nil, report, fmt.Errorf("load corpus: %w", err)
	}
	report.Pages = len(pages)

	chunks := b.chunker.Split(pages)
	if len(chunks) == 0 {
		return nil, report, ErrEmptyCorpus
	}
	report.Chunks = len(chunks)
	logger.Info("corpus chunked", "pages", len(pages), "chunks", len(chunks))

	vectors, err := b.embedAll(ctx, chunks)
	if err != nil {
		return nil, report, fmt.Errorf("embed chunks: %w", err)
	}

	idx, err := Build(chunks, vectors, b.embedder.Model())
	if err != nil {
		return nil, report, err
	}

	sha, err := utils.SHA256File(b.cfg.SourcePath)
	if err != nil {
		return nil, report, err
	}
	m := Manifest{
		Version:        ManifestVersion,
		IndexID:        idx.ID,
		EmbeddingModel: idx.Model,
		Dimension:      idx.Dimension,
		ChunkCount:     idx.Len(),
		ChunkSize:      b.cfg.ChunkSize,
		ChunkOverlap:   b.cfg.ChunkOverlap,
		SourcePath:     b.cfg.SourcePath,
		SourceSHA256:   sha,
		CreatedAt:      idx.CreatedAt,
	}
	if err := b.store.Save(ctx, idx, m); err != nil {
		return nil, report, fmt.Errorf("persist index: %w", err)
	}
	report.Manifest = m
	logger.Info("vector index built", "location", b.store.Location(), "index_id", idx.ID, "chunks", idx.Len(), "dimension", idx.Dimension)
	return idx, report, nil
}

// embedAll embeds chunks in batches with bounded concurrency, keeping order.
func (b *Builder) embedAll(ctx context.Context, chunks []Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)

	for start := 0; start < len(chunks); start += b.cfg.BatchSize {
		end := min(start+b.cfg.BatchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, end-start)
			for i := range texts {
				texts[i] = chunks[start+i].Text
			}
			out, err := b.embedder.EmbedDocuments(gctx, texts)
			if err != nil {
				return err
			}
			if len(out) != len(texts) {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(out), len(texts))
			}
			copy(vectors[start:end], out)
			logger.Debug("embedded batch", "from", start, "to", end)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (b *Builder) compatible(m Manifest) error {
	switch {
	case m.EmbeddingModel != b.embedder.Model():
		return fmt.Errorf("%w: index embedded with %q, current model is %q", ErrSchemaMismatch, m.EmbeddingModel, b.embedder.Model())
	case m.ChunkSize != b.cfg.ChunkSize || m.ChunkOverlap != b.cfg.ChunkOverlap:
		return fmt.Errorf("%w: index chunked with %d/%d, current settings are %d/%d",
			ErrSchemaMismatch, m.ChunkSize, m.ChunkOverlap, b.cfg.ChunkSize, b.cfg.ChunkOverlap)
	case m.SourcePath != b.cfg.SourcePath:
		return fmt.Errorf("%w: index built from %s, corpus is %s", ErrSchemaMismatch, m.SourcePath, b.cfg.SourcePath)
	}
	return nil
}
