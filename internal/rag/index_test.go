package rag

import (
	"math"
	"testing"
)

// TestNormalize verifies unit-length scaling and the zero-vector no-op.
func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("norm^2 = %v, want 1", sum)
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("got %v, want [0.6 0.8]", v)
	}

	zero := []float32{0, 0, 0}
	Normalize(zero)
	for i, x := range zero {
		if x != 0 {
			t.Errorf("zero vector changed at %d: %v", i, x)
		}
	}
}

func testSnapshot() *Snapshot {
	chunks := []Chunk{
		{ChunkID: 0, Text: "north"},
		{ChunkID: 1, Text: "east"},
		{ChunkID: 2, Text: "northeast"},
	}
	vectors := []float32{
		0, 1,
		1, 0,
		0.7071, 0.7071,
	}
	return NewSnapshot("h", chunks, vectors, 2)
}

// TestSnapshotSearch verifies inner-product ranking, best first.
func TestSnapshotSearch(t *testing.T) {
	snap := testSnapshot()

	hits := snap.Search([]float32{0, 1}, 2)
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].ChunkID != 0 {
		t.Errorf("best hit = chunk %d, want 0", hits[0].ChunkID)
	}
	if hits[1].ChunkID != 2 {
		t.Errorf("second hit = chunk %d, want 2", hits[1].ChunkID)
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("scores out of order: %v then %v", hits[0].Score, hits[1].Score)
	}
	if hits[0].Text != "north" {
		t.Errorf("hit text = %q, want %q", hits[0].Text, "north")
	}
}

// TestSnapshotSearchTieBreak verifies that equal scores are ordered by
// chunk id so results are deterministic.
func TestSnapshotSearchTieBreak(t *testing.T) {
	chunks := []Chunk{
		{ChunkID: 0, Text: "a"},
		{ChunkID: 1, Text: "b"},
		{ChunkID: 2, Text: "c"},
	}
	vectors := []float32{
		1, 0,
		1, 0,
		1, 0,
	}
	snap := NewSnapshot("h", chunks, vectors, 2)

	hits := snap.Search([]float32{1, 0}, 3)
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}
	for i, h := range hits {
		if h.ChunkID != i {
			t.Errorf("position %d: chunk %d, want %d", i, h.ChunkID, i)
		}
	}
}

// TestSnapshotSearchEdgeCases verifies the nil and mismatch guards.
func TestSnapshotSearchEdgeCases(t *testing.T) {
	snap := testSnapshot()

	if hits := snap.Search([]float32{1, 0, 0}, 5); hits != nil {
		t.Errorf("dimension mismatch: got %v, want nil", hits)
	}
	if hits := snap.Search([]float32{1, 0}, 0); hits != nil {
		t.Errorf("k=0: got %v, want nil", hits)
	}
	if hits := snap.Search([]float32{1, 0}, 10); len(hits) != 3 {
		t.Errorf("k beyond size: got %d hits, want all 3", len(hits))
	}

	var nilSnap *Snapshot
	if hits := nilSnap.Search([]float32{1, 0}, 5); hits != nil {
		t.Errorf("nil snapshot: got %v, want nil", hits)
	}
	if n := nilSnap.Len(); n != 0 {
		t.Errorf("nil snapshot Len = %d, want 0", n)
	}

	empty := NewSnapshot("h", nil, nil, 2)
	if hits := empty.Search([]float32{1, 0}, 5); hits != nil {
		t.Errorf("empty snapshot: got %v, want nil", hits)
	}
}
