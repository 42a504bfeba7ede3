package rag

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

var (
	ErrIndexNotFound     = errors.New("persisted index not found")
	ErrSchemaMismatch    = errors.New("persisted index schema mismatch")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Chunk is a contiguous slice of corpus text, the unit of retrieval.
type Chunk struct {
	Text    string `json:"text" bson:"text"`
	Page    int    `json:"page" bson:"page"`
	Ordinal int    `json:"ordinal" bson:"ordinal"`
}

// Index is an immutable flat (exhaustive) vector index. It is safe for
// concurrent reads.
type Index struct {
	ID        string
	Model     string
	Dimension int
	CreatedAt time.Time

	chunks  []Chunk
	vectors []float32 // row-major, len(chunks) * Dimension
}

// Build constructs an index from chunks and their vectors, which must be
// aligned and of one dimensionality.
func Build(chunks []Chunk, vectors [][]float32, model string) (*Index, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyCorpus
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}

	flat := make([]float32, 0, len(vectors)*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		flat = append(flat, v...)
	}

	owned := make([]Chunk, len(chunks))
	copy(owned, chunks)
	return &Index{
		ID:        uuid.NewString(),
		Model:     model,
		Dimension: dim,
		CreatedAt: time.Now().UTC(),
		chunks:    owned,
		vectors:   flat,
	}, nil
}

// restore rebuilds an index read back from a store.
func restore(m Manifest, chunks []Chunk, flat []float32) (*Index, error) {
	if m.Dimension <= 0 || len(chunks) == 0 {
		return nil, fmt.Errorf("%w: empty index", ErrSchemaMismatch)
	}
	if len(chunks) != m.ChunkCount || len(flat) != m.ChunkCount*m.Dimension {
		return nil, fmt.Errorf("%w: manifest says %d x %d, found %d chunks and %d floats",
			ErrSchemaMismatch, m.ChunkCount, m.Dimension, len(chunks), len(flat))
	}
	for i, c := range chunks {
		if c.Ordinal != i {
			return nil, fmt.Errorf("%w: chunk %d has ordinal %d", ErrSchemaMismatch, i, c.Ordinal)
		}
	}
	return &Index{
		ID:        m.IndexID,
		Model:     m.EmbeddingModel,
		Dimension: m.Dimension,
		CreatedAt: m.CreatedAt,
		chunks:    chunks,
		vectors:   flat,
	}, nil
}

func (idx *Index) Len() int { return len(idx.chunks) }

// Chunks returns a copy of the indexed chunks in insertion order.
func (idx *Index) Chunks() []Chunk {
	return slices.Clone(idx.chunks)
}

// Vector returns the stored vector of chunk i. The slice must not be modified.
func (idx *Index) Vector(i int) []float32 {
	return idx.vectors[i*idx.Dimension : (i+1)*idx.Dimension]
}

// Search returns up to k chunks by ascending squared L2 distance to q. Ties
// keep insertion order.
func (idx *Index) Search(q []float32, k int) ([]Chunk, error) {
	if k <= 0 || idx.Len() == 0 {
		return []Chunk{}, nil
	}
	if len(q) != idx.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(q), idx.Dimension)
	}

	type hit struct {
		pos  int
		dist float64
	}
	hits := make([]hit, idx.Len())
	for i := range hits {
		hits[i] = hit{pos: i, dist: squaredL2(q, idx.Vector(i))}
	}
	slices.SortStableFunc(hits, func(a, b hit) int { return cmp.Compare(a.dist, b.dist) })

	k = min(k, len(hits))
	out := make([]Chunk, k)
	for i := 0; i < k; i++ {
		out[i] = idx.chunks[hits[i].pos]
	}
	return out, nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
