package compression

import (
	"bytes"
	"testing"
)

func roundTrip(t *testing.T, config *Config, data []byte) {
	t.Helper()

	c, err := NewCompressor(config)
	if err != nil {
		t.Fatalf("NewCompressor failed: %v", err)
	}
	defer c.Close()

	compressed, err := c.Compress(data)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	decompressed, err := c.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}

	if !bytes.Equal(data, decompressed) {
		t.Errorf("Round trip mismatch for %s", config.Algorithm)
	}
}

func TestCompressorRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("clara-db document payload "), 100)

	roundTrip(t, &Config{Algorithm: AlgorithmNone}, data)
	roundTrip(t, &Config{Algorithm: AlgorithmSnappy}, data)
	roundTrip(t, ZstdConfig(3), data)
}

func TestCompressorEmptyInput(t *testing.T) {
	c, err := NewCompressor(DefaultConfig())
	if err != nil {
		t.Fatalf("NewCompressor failed: %v", err)
	}
	defer c.Close()

	compressed, err := c.Compress(nil)
	if err != nil || len(compressed) != 0 {
		t.Errorf("Expected empty output for empty input, got %v (%v)", compressed, err)
	}
}

func TestCompressionReducesRepetitiveData(t *testing.T) {
	data := bytes.Repeat([]byte("aaaaaaaaaa"), 1000)

	c, err := NewCompressor(DefaultConfig())
	if err != nil {
		t.Fatalf("NewCompressor failed: %v", err)
	}
	defer c.Close()

	compressed, err := c.Compress(data)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Errorf("Expected compression to shrink repetitive data: %d >= %d", len(compressed), len(data))
	}
}

func TestParseAlgorithm(t *testing.T) {
	cases := map[string]Algorithm{
		"":       AlgorithmSnappy,
		"snappy": AlgorithmSnappy,
		"zstd":   AlgorithmZstd,
		"none":   AlgorithmNone,
	}
	for name, expected := range cases {
		got, err := ParseAlgorithm(name)
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q) failed: %v", name, err)
		}
		if got != expected {
			t.Errorf("ParseAlgorithm(%q) = %v, expected %v", name, got, expected)
		}
	}

	if _, err := ParseAlgorithm("lz77"); err == nil {
		t.Error("Expected error for unknown algorithm")
	}
}
