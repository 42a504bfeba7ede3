package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileLoaderTextPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.txt")
	if err := os.WriteFile(path, []byte("page one\fpage two\f\fpage four"), 0o644); err != nil {
		t.Fatal(err)
	}
	pages, err := FileLoader{}.Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 4 {
		t.Fatalf("got %d pages, want 4", len(pages))
	}
	if pages[1].Number != 2 || pages[1].Text != "page two" || pages[3].Number != 4 {
		t.Errorf("unexpected pages: %+v", pages)
	}
}

func TestFileLoaderErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := (FileLoader{}).Load(context.Background(), filepath.Join(dir, "nope.pdf")); err == nil {
		t.Error("missing file should fail")
	}

	blank := filepath.Join(dir, "blank.txt")
	_ = os.WriteFile(blank, []byte(" \n\f\t"), 0o644)
	if _, err := (FileLoader{}).Load(context.Background(), blank); !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("blank corpus: expected ErrEmptyCorpus, got %v", err)
	}

	bad := filepath.Join(dir, "bad.pdf")
	_ = os.WriteFile(bad, []byte("not a pdf"), 0o644)
	if _, err := (FileLoader{}).Load(context.Background(), bad); err == nil {
		t.Error("invalid PDF should fail")
	}
}
