package rag

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	chunksFile     = "chunks.json"
	embeddingsFile = "embeddings.bin"
	metaFile       = "meta.json"
)

// CacheMeta describes a cached embedding set.
type CacheMeta struct {
	NChunks          int    `json:"n_chunks"`
	Dim              int    `json:"dim"`
	EmbeddingModelID string `json:"embedding_model_id"`
	CreatedAt        string `json:"created_at"`
}

// Cache is a content-addressed store of chunk embeddings, one directory per
// rules hash. Entries are written once and never mutated.
type Cache struct {
	root string
}

// NewCache opens (creating if needed) a cache rooted at dir.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{root: dir}, nil
}

// Dir returns the directory for a hash.
func (c *Cache) Dir(hash string) string {
	return filepath.Join(c.root, hash)
}

// Load reads a cached entry. ok is false when the entry is absent, was
// written for a different dimension, or fails validation.
func (c *Cache) Load(hash string, wantDim int) (chunks []Chunk, vectors []float32, meta CacheMeta, ok bool) {
	dir := c.Dir(hash)

	metaData, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return nil, nil, CacheMeta{}, false
	}
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, nil, CacheMeta{}, false
	}
	if meta.Dim != wantDim {
		return nil, nil, CacheMeta{}, false
	}

	chunkData, err := os.ReadFile(filepath.Join(dir, chunksFile))
	if err != nil {
		return nil, nil, CacheMeta{}, false
	}
	if err := json.Unmarshal(chunkData, &chunks); err != nil {
		return nil, nil, CacheMeta{}, false
	}
	if len(chunks) != meta.NChunks {
		return nil, nil, CacheMeta{}, false
	}

	raw, err := os.ReadFile(filepath.Join(dir, embeddingsFile))
	if err != nil {
		return nil, nil, CacheMeta{}, false
	}
	if len(raw) != meta.NChunks*meta.Dim*4 {
		return nil, nil, CacheMeta{}, false
	}
	vectors = make([]float32, meta.NChunks*meta.Dim)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, vectors); err != nil {
		return nil, nil, CacheMeta{}, false
	}

	return chunks, vectors, meta, true
}

// Store writes an entry atomically: files land in a temp dir that is renamed
// into place. A concurrent writer of the same hash wins harmlessly since
// content is identical by construction.
func (c *Cache) Store(hash string, chunks []Chunk, vectors []float32, meta CacheMeta) error {
	if len(vectors) != meta.NChunks*meta.Dim {
		return fmt.Errorf("vector length %d does not match %d x %d", len(vectors), meta.NChunks, meta.Dim)
	}

	tmp, err := os.MkdirTemp(c.root, "tmp-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	chunkData, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, chunksFile), chunkData, 0o644); err != nil {
		return fmt.Errorf("write chunks: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(vectors) * 4)
	if err := binary.Write(&buf, binary.LittleEndian, vectors); err != nil {
		return fmt.Errorf("encode embeddings: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, embeddingsFile), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write embeddings: %w", err)
	}

	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, metaFile), metaData, 0o644); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}

	dst := c.Dir(hash)
	if err := os.Rename(tmp, dst); err != nil {
		if _, statErr := os.Stat(dst); statErr == nil {
			return nil
		}
		return fmt.Errorf("publish cache entry: %w", err)
	}
	return nil
}

// GC removes entries older than maxAge, except those keep reports as still
// referenced. Returns the number of removed entries.
func (c *Cache) GC(maxAge time.Duration, keep func(hash string) bool) (int, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return 0, fmt.Errorf("read cache dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), "tmp-") {
			continue
		}
		if keep != nil && keep(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(c.root, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
