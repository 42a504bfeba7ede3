package rag

import (
	"context"
	"time"

	"docbot-rag/internal/logger"
	"docbot-rag/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
)

// Retriever embeds a query and returns the k nearest chunks. A nil index
// yields an empty result, not an error.
type Retriever struct {
	idx      *Index
	embedder Embedder
	k        int
	cache    Cache
	metrics  *telemetry.Metrics
}

type RetrieverOption func(*Retriever)

func WithCache(c Cache) RetrieverOption {
	return func(r *Retriever) { r.cache = c }
}

func WithMetrics(m *telemetry.Metrics) RetrieverOption {
	return func(r *Retriever) { r.metrics = m }
}

func NewRetriever(idx *Index, embedder Embedder, k int, opts ...RetrieverOption) *Retriever {
	r := &Retriever{idx: idx, embedder: embedder, k: k}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ready reports whether queries can hit an index.
func (r *Retriever) Ready() bool {
	return r != nil && r.idx != nil && r.embedder != nil
}

func (r *Retriever) Index() *Index {
	if r == nil {
		return nil
	}
	return r.idx
}

func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Chunk, error) {
	if !r.Ready() {
		return []Chunk{}, nil
	}
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "rag.retrieve")
	defer span.End()
	span.SetAttributes(attribute.Int("rag.k", r.k), attribute.String("rag.index_id", r.idx.ID))

	key := ""
	if r.cache != nil {
		key = CacheKey(r.idx.ID, r.k, query)
		chunks, ok, err := r.cache.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn("retrieval cache read failed", "error", err)
			r.metrics.RecordCacheLookup("error")
		case ok:
			logger.Debug("retrieval cache hit", "key", key, "results", len(chunks))
			r.metrics.RecordCacheLookup("hit")
			r.metrics.RecordRetrieval(time.Since(start).Seconds(), true)
			span.SetAttributes(attribute.Bool("rag.cache_hit", true))
			return chunks, nil
		default:
			r.metrics.RecordCacheLookup("miss")
		}
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	chunks, err := r.idx.Search(vec, r.k)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("rag.results", len(chunks)))

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, chunks); err != nil {
			logger.Warn("retrieval cache write failed", "error", err)
		}
	}
	r.metrics.RecordRetrieval(time.Since(start).Seconds(), false)
	return chunks, nil
}

// Texts returns the chunk texts in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
