package ai

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// LocalEmbedder is a deterministic, offline feature-hashing embedder. Unigrams
// and bigrams are hashed into a fixed number of signed buckets and the result
// is L2-normalized, so texts sharing vocabulary land close together.
type LocalEmbedder struct {
	name   string
	dim    int
	device string
}

func NewLocalEmbedder(name string, dim int, device string) (*LocalEmbedder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	if name == "" {
		name = "feature-hashing"
	}
	if device == "" {
		device = "cpu"
	}
	return &LocalEmbedder{name: name, dim: dim, device: device}, nil
}

func (e *LocalEmbedder) Model() string { return fmt.Sprintf("local/%s/%d", e.name, e.dim) }

func (e *LocalEmbedder) Device() string { return e.device }

func (e *LocalEmbedder) Close() error { return nil }

func (e *LocalEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(text), nil
}

func (e *LocalEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *LocalEmbedder) embed(text string) []float32 {
	v := make([]float32, e.dim)
	tokens := tokenize(text)
	for i, tok := range tokens {
		e.add(v, tok, 1)
		if i > 0 {
			e.add(v, tokens[i-1]+" "+tok, 0.5)
		}
	}
	l2normalize(v)
	return v
}

func (e *LocalEmbedder) add(v []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	v[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
