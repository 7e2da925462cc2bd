package rag

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testCacheEntry() ([]Chunk, []float32, CacheMeta) {
	chunks := []Chunk{
		{ChunkID: 0, Text: "alpha", SourceRowID: 1},
		{ChunkID: 1, Text: "beta", SourceRowID: 2},
	}
	vectors := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	meta := CacheMeta{
		NChunks:          2,
		Dim:              3,
		EmbeddingModelID: "all-minilm",
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	return chunks, vectors, meta
}

// TestCacheRoundtrip verifies that a stored entry loads back with the same
// chunks and vectors.
func TestCacheRoundtrip(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	chunks, vectors, meta := testCacheEntry()
	if err := cache.Store("abc123", chunks, vectors, meta); err != nil {
		t.Fatalf("Store: %v", err)
	}

	gotChunks, gotVectors, gotMeta, ok := cache.Load("abc123", 3)
	if !ok {
		t.Fatal("Load returned ok=false for stored entry")
	}
	if len(gotChunks) != 2 || gotChunks[1].Text != "beta" || gotChunks[1].SourceRowID != 2 {
		t.Errorf("chunks did not roundtrip: %+v", gotChunks)
	}
	if len(gotVectors) != 6 {
		t.Fatalf("got %d vector values, want 6", len(gotVectors))
	}
	for i, v := range vectors {
		if gotVectors[i] != v {
			t.Errorf("vector[%d] = %v, want %v", i, gotVectors[i], v)
		}
	}
	if gotMeta.EmbeddingModelID != "all-minilm" || gotMeta.NChunks != 2 {
		t.Errorf("meta did not roundtrip: %+v", gotMeta)
	}
}

// TestCacheLoadMisses verifies that absent entries, dimension mismatches and
// truncated files all report a clean miss.
func TestCacheLoadMisses(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	if _, _, _, ok := cache.Load("missing", 3); ok {
		t.Error("Load of absent hash returned ok=true")
	}

	chunks, vectors, meta := testCacheEntry()
	if err := cache.Store("abc123", chunks, vectors, meta); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, _, _, ok := cache.Load("abc123", 4); ok {
		t.Error("Load with wrong dimension returned ok=true")
	}

	// Truncate the vector file; the size check must reject the entry.
	binPath := filepath.Join(cache.Dir("abc123"), "embeddings.bin")
	if err := os.WriteFile(binPath, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if _, _, _, ok := cache.Load("abc123", 3); ok {
		t.Error("Load of truncated entry returned ok=true")
	}
}

// TestCacheStoreVectorMismatch verifies that Store rejects a vector block
// whose length disagrees with the meta.
func TestCacheStoreVectorMismatch(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	chunks, vectors, meta := testCacheEntry()
	meta.NChunks = 5
	if err := cache.Store("abc123", chunks, vectors, meta); err == nil {
		t.Error("Store accepted mismatched vector length")
	}
}

// TestCacheStoreConcurrentWinner verifies that storing the same hash twice
// succeeds; the second write loses the rename but that is not an error.
func TestCacheStoreConcurrentWinner(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	chunks, vectors, meta := testCacheEntry()
	if err := cache.Store("abc123", chunks, vectors, meta); err != nil {
		t.Fatalf("first Store: %v", err)
	}
	if err := cache.Store("abc123", chunks, vectors, meta); err != nil {
		t.Errorf("second Store of same hash: %v", err)
	}
	if _, _, _, ok := cache.Load("abc123", 3); !ok {
		t.Error("entry unreadable after double store")
	}
}

// TestCacheGC verifies that old entries are removed while recent ones and
// ones the keep func claims survive.
func TestCacheGC(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	chunks, vectors, meta := testCacheEntry()
	for _, hash := range []string{"old-dead", "old-live", "fresh"} {
		if err := cache.Store(hash, chunks, vectors, meta); err != nil {
			t.Fatalf("Store %s: %v", hash, err)
		}
	}

	// Age two entries past the cutoff.
	stale := time.Now().Add(-48 * time.Hour)
	for _, hash := range []string{"old-dead", "old-live"} {
		if err := os.Chtimes(cache.Dir(hash), stale, stale); err != nil {
			t.Fatalf("Chtimes %s: %v", hash, err)
		}
	}

	removed, err := cache.GC(24*time.Hour, func(hash string) bool {
		return hash == "old-live"
	})
	if err != nil {
		t.Fatalf("GC: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, _, _, ok := cache.Load("old-dead", 3); ok {
		t.Error("expired entry survived GC")
	}
	if _, _, _, ok := cache.Load("old-live", 3); !ok {
		t.Error("kept entry was removed")
	}
	if _, _, _, ok := cache.Load("fresh", 3); !ok {
		t.Error("recent entry was removed")
	}
}
