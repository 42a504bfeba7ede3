package rag

import (
	"context"
	"fmt"
	"time"
)

// ManifestVersion changes whenever the persisted layout changes; older
// copies are then rebuilt rather than read.
const ManifestVersion = 1

// Manifest describes a persisted index.
type Manifest struct {
	Version        int       `json:"version" bson:"version"`
	IndexID        string    `json:"index_id" bson:"_id"`
	EmbeddingModel string    `json:"embedding_model" bson:"embedding_model"`
	Dimension      int       `json:"dimension" bson:"dimension"`
	ChunkCount     int       `json:"chunk_count" bson:"chunk_count"`
	ChunkSize      int       `json:"chunk_size" bson:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap" bson:"chunk_overlap"`
	SourcePath     string    `json:"source_path" bson:"source_path"`
	SourceSHA256   string    `json:"source_sha256" bson:"source_sha256"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

// IndexStore persists a whole index. Save must leave either the previous
// index or the new one readable, never a mix.
type IndexStore interface {
	Save(ctx context.Context, idx *Index, m Manifest) error
	// Load returns ErrIndexNotFound when nothing has been saved yet.
	Load(ctx context.Context) (*Index, Manifest, error)
	Location() string
}

// checkManifest rejects manifests that cannot describe a readable index, so
// a corrupt copy is rebuilt instead of read.
func checkManifest(m Manifest) error {
	if m.Version != ManifestVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrSchemaMismatch, m.Version, ManifestVersion)
	}
	if m.ChunkCount <= 0 || m.Dimension <= 0 {
		return fmt.Errorf("%w: %d chunks of dimension %d", ErrSchemaMismatch, m.ChunkCount, m.Dimension)
	}
	return nil
}
