package utils

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// CompressionAlgorithm names a codec for persisted blobs.
type CompressionAlgorithm string

const (
	CompressionNone   CompressionAlgorithm = "none"
	CompressionGzip   CompressionAlgorithm = "gzip"
	CompressionBrotli CompressionAlgorithm = "br"
)

func newCompressor(w io.Writer, algorithm CompressionAlgorithm) (io.WriteCloser, error) {
	switch algorithm {
	case CompressionGzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case CompressionBrotli:
		return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

func newDecompressor(r io.Reader, algorithm CompressionAlgorithm) (io.Reader, error) {
	switch algorithm {
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionBrotli:
		return brotli.NewReader(r), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

// CompressData compresses data in memory. Empty input is returned unchanged.
func CompressData(data []byte, algorithm CompressionAlgorithm) ([]byte, error) {
	if len(data) == 0 || algorithm == CompressionNone {
		return data, nil
	}

	var buf bytes.Buffer
	w, err := newCompressor(&buf, algorithm)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%s compress: %w", algorithm, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%s compress: %w", algorithm, err)
	}
	return buf.Bytes(), nil
}

// DecompressData reverses CompressData.
func DecompressData(compressed []byte, algorithm CompressionAlgorithm) ([]byte, error) {
	if len(compressed) == 0 || algorithm == CompressionNone {
		return compressed, nil
	}

	r, err := newDecompressor(bytes.NewReader(compressed), algorithm)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", algorithm, err)
	}
	return data, nil
}
