package rag

import (
	"fmt"
	"strings"
	"unicode"
)

// maxWordBacktrack bounds how far a chunk start is moved back to a word start.
const maxWordBacktrack = 32

// Chunker splits pages into overlapping, size-bounded chunks. Lengths are
// measured in runes.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split chunks every page independently; overlap never crosses a page
// boundary. Ordinals run from 0 across the whole corpus.
func (c *Chunker) Split(pages []Page) []Chunk {
	var chunks []Chunk
	for _, p := range pages {
		text := []rune(strings.TrimSpace(p.Text))
		if len(text) == 0 {
			continue
		}
		for _, s := range c.spans(text) {
			chunks = append(chunks, Chunk{
				Text:    string(text[s[0]:s[1]]),
				Page:    p.Number,
				Ordinal: len(chunks),
			})
		}
	}
	return chunks
}

// spans returns [start, end) rune offsets. Each span is at most c.size long
// and shares at least c.overlap runes with the previous one.
func (c *Chunker) spans(text []rune) [][2]int {
	n := len(text)
	var out [][2]int
	start, prevEnd := 0, 0

	for {
		limit := min(start+c.size, n)
		if limit == n {
			out = append(out, [2]int{start, n})
			return out
		}

		lo := max(start+c.overlap, prevEnd)
		end := boundary(text, lo, limit)
		out = append(out, [2]int{start, end})

		// The next window must still reach past end, so it may move back at
		// most to end-size+1.
		next := end - c.overlap
		floor := max(start+1, end-c.size+1, next-maxWordBacktrack)
		next = wordStart(text, next, floor)

		prevEnd = end
		start = next
	}
}

// boundary returns the best cut position in (lo, hi]: the latest paragraph
// break, else line break, else sentence end, else whitespace, else hi.
func boundary(text []rune, lo, hi int) int {
	finders := []func(p int) bool{
		func(p int) bool { return p >= 2 && text[p-1] == '\n' && text[p-2] == '\n' },
		func(p int) bool { return text[p-1] == '\n' },
		func(p int) bool {
			return p < len(text) && isSentenceEnd(text[p-1]) && unicode.IsSpace(text[p])
		},
		func(p int) bool { return p < len(text) && unicode.IsSpace(text[p]) && !unicode.IsSpace(text[p-1]) },
	}
	for _, match := range finders {
		for p := hi; p > lo; p-- {
			if match(p) {
				return p
			}
		}
	}
	return hi
}

// wordStart moves pos back to the start of the word it falls in, without
// going below floor. If no word start exists in range pos is returned as is.
func wordStart(text []rune, pos, floor int) int {
	if pos <= floor || unicode.IsSpace(text[pos-1]) {
		return pos
	}
	for p := pos - 1; p >= floor; p-- {
		if p == 0 || unicode.IsSpace(text[p-1]) {
			return p
		}
	}
	return pos
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
