package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docbot-rag/internal/logger"

	"github.com/ledongthuc/pdf"
)

// Page is one page of corpus text. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Loader turns a corpus document into ordered pages.
type Loader interface {
	Load(ctx context.Context, path string) ([]Page, error)
}

var ErrEmptyCorpus = errors.New("corpus contains no extractable text")

// FileLoader reads PDFs page by page; any other file is read as UTF-8 text
// with form feeds separating pages.
type FileLoader struct{}

func (FileLoader) Load(ctx context.Context, path string) ([]Page, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("corpus file %s: %w", path, err)
	}

	var (
		pages []Page
		err   error
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		pages, err = loadPDF(ctx, path)
	} else {
		pages, err = loadText(path)
	}
	if err != nil {
		return nil, err
	}

	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return pages, nil
		}
	}
	return nil, ErrEmptyCorpus
}

func loadPDF(ctx context.Context, path string) ([]Page, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := pageText(page)
		if err != nil {
			logger.Warn("failed to extract text from page", "page", i, "error", err)
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}

// pageText guards against the panics ledongthuc/pdf raises on malformed
// content streams.
func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf page decode panic: %v", r)
		}
	}()
	fonts := make(map[string]*pdf.Font)
	return page.GetPlainText(fonts)
}

func loadText(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	parts := strings.Split(string(data), "\f")
	pages := make([]Page, 0, len(parts))
	for i, p := range parts {
		pages = append(pages, Page{Number: i + 1, Text: p})
	}
	return pages, nil
}
