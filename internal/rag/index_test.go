package rag

import (
	"errors"
	"testing"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	chunks := []Chunk{
		{Text: "a", Page: 1, Ordinal: 0},
		{Text: "b", Page: 1, Ordinal: 1},
		{Text: "c", Page: 2, Ordinal: 2},
		{Text: "d", Page: 2, Ordinal: 3},
	}
	vectors := [][]float32{
		{0, 0},
		{1, 0},
		{0, 1}, // same distance from (1,1) as b
		{5, 5},
	}
	idx, err := Build(chunks, vectors, "test-model")
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func texts(chunks []Chunk) string {
	s := ""
	for _, c := range chunks {
		s += c.Text
	}
	return s
}

func TestBuildValidates(t *testing.T) {
	if _, err := Build(nil, nil, "m"); !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("empty build: got %v", err)
	}
	if _, err := Build([]Chunk{{Text: "a"}}, [][]float32{{1}, {2}}, "m"); err == nil {
		t.Error("length mismatch should fail")
	}
	_, err := Build([]Chunk{{Text: "a"}, {Text: "b"}}, [][]float32{{1, 2}, {3}}, "m")
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("dimension mismatch: got %v", err)
	}
}

func TestSearchOrderingAndTies(t *testing.T) {
	idx := testIndex(t)

	got, err := idx.Search([]float32{1, 1}, 3)
	if err != nil {
		t.Fatal(err)
	}
	// b and c tie at distance 1; b was inserted first.
	if texts(got) != "bca" {
		t.Errorf("Search = %q, want %q", texts(got), "bca")
	}
}

func TestSearchBounds(t *testing.T) {
	idx := testIndex(t)
	q := []float32{0, 0}

	for _, tc := range []struct{ k, want int }{{0, 0}, {-1, 0}, {1, 1}, {4, 4}, {10, 4}} {
		got, err := idx.Search(q, tc.k)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != tc.want {
			t.Errorf("Search(k=%d) returned %d results, want %d", tc.k, len(got), tc.want)
		}
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	idx := testIndex(t)
	if _, err := idx.Search([]float32{1, 2, 3}, 2); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestBuildCopiesInput(t *testing.T) {
	chunks := []Chunk{{Text: "a"}}
	vectors := [][]float32{{1, 2}}
	idx, _ := Build(chunks, vectors, "m")
	chunks[0].Text = "mutated"
	vectors[0][0] = 99

	got, _ := idx.Search([]float32{1, 2}, 1)
	if got[0].Text != "a" || idx.Vector(0)[0] != 1 {
		t.Error("index should not alias caller slices")
	}
}
