package app

import (
	"testing"

	"docbot-rag/internal/config"
	"docbot-rag/internal/rag"
)

func TestNewIndexStoreFile(t *testing.T) {
	cfg := config.Defaults()
	cfg.VectorStorePath = t.TempDir()

	store, closeFn, err := NewIndexStore(cfg)
	if err != nil {
		t.Fatalf("NewIndexStore: %v", err)
	}
	defer closeFn()

	if _, ok := store.(*rag.FileStore); !ok {
		t.Fatalf("store = %T, want *rag.FileStore", store)
	}
	if store.Location() != cfg.VectorStorePath {
		t.Errorf("Location() = %q", store.Location())
	}
}

func TestNewIndexStoreUnknown(t *testing.T) {
	cfg := config.Defaults()
	cfg.IndexBackend = "sqlite"
	if _, _, err := NewIndexStore(cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
