package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCompressDataRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("Migraine is a recurring headache disorder. ", 200))

	for _, alg := range []CompressionAlgorithm{CompressionNone, CompressionGzip, CompressionBrotli} {
		t.Run(string(alg), func(t *testing.T) {
			compressed, err := CompressData(data, alg)
			if err != nil {
				t.Fatalf("CompressData: %v", err)
			}
			if alg != CompressionNone && len(compressed) >= len(data) {
				t.Errorf("compressed size %d not smaller than %d", len(compressed), len(data))
			}
			out, err := DecompressData(compressed, alg)
			if err != nil {
				t.Fatalf("DecompressData: %v", err)
			}
			if !bytes.Equal(out, data) {
				t.Error("round trip mismatch")
			}
		})
	}
}

func TestCompressDataUnknownAlgorithm(t *testing.T) {
	if _, err := CompressData([]byte("x"), "lz4"); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
}

func TestSHA256File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.txt")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := SHA256File(path)
	if err != nil {
		t.Fatal(err)
	}
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want || SHA256Hex("abc") != want {
		t.Errorf("SHA256File = %s, want %s", got, want)
	}
}
