package rag

import (
	"math"
	"sort"
)

// Hit is one retrieval result.
type Hit struct {
	ChunkID int     `json:"chunk_id"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

// Snapshot is an immutable index over one context state. Vectors are
// L2-normalized, so inner product equals cosine similarity.
type Snapshot struct {
	Hash    string
	Chunks  []Chunk
	vectors []float32 // n x dim, row-major
	dim     int
}

// NewSnapshot wraps chunks and their flat vector block into an index.
func NewSnapshot(hash string, chunks []Chunk, vectors []float32, dim int) *Snapshot {
	return &Snapshot{Hash: hash, Chunks: chunks, vectors: vectors, dim: dim}
}

// Len returns the number of indexed chunks.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Chunks)
}

// Search scores every chunk against the (normalized) query vector and
// returns the top k by inner product, best first.
func (s *Snapshot) Search(query []float32, k int) []Hit {
	if s == nil || len(s.Chunks) == 0 || len(query) != s.dim || k <= 0 {
		return nil
	}

	hits := make([]Hit, 0, len(s.Chunks))
	for i, chunk := range s.Chunks {
		row := s.vectors[i*s.dim : (i+1)*s.dim]
		var score float64
		for j, q := range query {
			score += float64(q) * float64(row[j])
		}
		hits = append(hits, Hit{ChunkID: chunk.ChunkID, Text: chunk.Text, Score: score})
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].ChunkID < hits[b].ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Normalize scales v to unit length in place. Zero vectors are left alone.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
