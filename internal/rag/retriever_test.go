package rag

import (
	"context"
	"errors"
	"testing"
)

type memoryCache struct {
	entries map[string][]Chunk
	getErr  error
	sets    int
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]Chunk, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, chunks []Chunk) error {
	c.entries[key] = chunks
	c.sets++
	return nil
}

func letterIndex(t *testing.T, emb *letterEmbedder) *Index {
	t.Helper()
	chunks := []Chunk{
		{Text: "asthma wheezing", Ordinal: 0},
		{Text: "zzz", Ordinal: 1},
		{Text: "diabetes insulin glucose", Ordinal: 2},
	}
	vecs, _ := emb.EmbedDocuments(context.Background(), Texts(chunks))
	idx, err := Build(chunks, vecs, emb.Model())
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestRetrieverAbsentIndex(t *testing.T) {
	r := NewRetriever(nil, &letterEmbedder{}, 5)
	got, err := r.Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("absent index should not error, got %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
	if r.Ready() {
		t.Error("retriever without an index should not be ready")
	}
}

func TestRetrieverReturnsNearest(t *testing.T) {
	emb := &letterEmbedder{model: "m"}
	r := NewRetriever(letterIndex(t, emb), emb, 2)

	got, err := r.Retrieve(context.Background(), "diabetes insulin glucose")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Ordinal != 2 {
		t.Errorf("Retrieve = %+v, want chunk 2 first", got)
	}
}

func TestRetrieverEmbedError(t *testing.T) {
	emb := &letterEmbedder{model: "m"}
	idx := letterIndex(t, emb)
	emb.err = errors.New("down")

	if _, err := NewRetriever(idx, emb, 2).Retrieve(context.Background(), "q"); err == nil {
		t.Error("embedding failure should be returned")
	}
}

func TestRetrieverCache(t *testing.T) {
	emb := &letterEmbedder{model: "m"}
	idx := letterIndex(t, emb)
	cache := &memoryCache{entries: map[string][]Chunk{}}
	r := NewRetriever(idx, emb, 1, WithCache(cache))

	first, err := r.Retrieve(context.Background(), "asthma")
	if err != nil {
		t.Fatal(err)
	}
	if cache.sets != 1 {
		t.Fatalf("miss should populate the cache, sets=%d", cache.sets)
	}

	// A hit must not need the embedder.
	emb.err = errors.New("embedder should not be called")
	second, err := r.Retrieve(context.Background(), "asthma")
	if err != nil {
		t.Fatalf("cache hit failed: %v", err)
	}
	if len(second) != 1 || second[0] != first[0] {
		t.Errorf("cache hit = %+v, want %+v", second, first)
	}
}

func TestRetrieverCacheFailureIgnored(t *testing.T) {
	emb := &letterEmbedder{model: "m"}
	cache := &memoryCache{entries: map[string][]Chunk{}, getErr: errors.New("redis down")}
	r := NewRetriever(letterIndex(t, emb), emb, 1, WithCache(cache))

	got, err := r.Retrieve(context.Background(), "asthma")
	if err != nil || len(got) != 1 {
		t.Fatalf("cache errors must not fail retrieval: %v %+v", err, got)
	}
}

func TestCacheKeyScopesByIndexAndK(t *testing.T) {
	a := CacheKey("idx1", 5, "fever")
	if a == CacheKey("idx2", 5, "fever") || a == CacheKey("idx1", 3, "fever") || a == CacheKey("idx1", 5, "cough") {
		t.Error("cache keys must differ by index id, k and query")
	}
}
