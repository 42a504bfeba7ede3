package rag

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"docbot-rag/utils"
)

const (
	manifestFile = "manifest.json"
	vectorsFile  = "vectors.bin"
	chunksFile   = "chunks.json.br"
)

// FileStore keeps an index in a directory: a JSON manifest, little-endian
// float32 vectors and brotli-compressed chunk JSON.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: filepath.Clean(dir)}
}

func (s *FileStore) Location() string { return s.dir }

// Save writes into a sibling temp directory and swaps it in with renames.
func (s *FileStore) Save(ctx context.Context, idx *Index, m Manifest) error {
	if err := os.MkdirAll(filepath.Dir(s.dir), 0o755); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp(filepath.Dir(s.dir), filepath.Base(s.dir)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp index dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	chunks, err := json.Marshal(idx.chunks)
	if err != nil {
		return err
	}
	compressed, err := utils.CompressData(chunks, utils.CompressionBrotli)
	if err != nil {
		return err
	}

	files := []struct {
		name string
		data []byte
	}{
		{vectorsFile, encodeVectors(idx.vectors)},
		{chunksFile, compressed},
		{manifestFile, manifest},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(tmp, f.name), f.data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	old := s.dir + ".old"
	_ = os.RemoveAll(old)
	if err := os.Rename(s.dir, old); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("move previous index aside: %w", err)
	}
	if err := os.Rename(tmp, s.dir); err != nil {
		_ = os.Rename(old, s.dir)
		return fmt.Errorf("install index: %w", err)
	}
	_ = os.RemoveAll(old)
	return nil
}

func (s *FileStore) Load(ctx context.Context) (*Index, Manifest, error) {
	var m Manifest
	raw, err := os.ReadFile(filepath.Join(s.dir, manifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, m, ErrIndexNotFound
	}
	if err != nil {
		return nil, m, err
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, m, fmt.Errorf("%w: manifest: %v", ErrSchemaMismatch, err)
	}
	if err := checkManifest(m); err != nil {
		return nil, m, err
	}

	vecRaw, err := os.ReadFile(filepath.Join(s.dir, vectorsFile))
	if err != nil {
		return nil, m, fmt.Errorf("read vectors: %w", err)
	}
	flat, err := decodeVectors(vecRaw)
	if err != nil {
		return nil, m, err
	}

	if err := ctx.Err(); err != nil {
		return nil, m, err
	}
	chunkRaw, err := os.ReadFile(filepath.Join(s.dir, chunksFile))
	if err != nil {
		return nil, m, fmt.Errorf("read chunks: %w", err)
	}
	decompressed, err := utils.DecompressData(chunkRaw, utils.CompressionBrotli)
	if err != nil {
		return nil, m, fmt.Errorf("%w: chunks: %v", ErrSchemaMismatch, err)
	}
	var chunks []Chunk
	if err := json.Unmarshal(decompressed, &chunks); err != nil {
		return nil, m, fmt.Errorf("%w: chunks: %v", ErrSchemaMismatch, err)
	}

	idx, err := restore(m, chunks, flat)
	if err != nil {
		return nil, m, err
	}
	return idx, m, nil
}

func encodeVectors(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

func decodeVectors(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: vectors file length %d is not a multiple of 4", ErrSchemaMismatch, len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}
