// Package rag maintains per-session retrieval indexes over ingested
// rules/context: blank-line chunking, local embeddings, an exact
// inner-product scan, and a content-addressed disk cache.
package rag

import "context"

// Embedder generates fixed-dimension vectors for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the provider name.
	Name() string

	// Dimension returns the embedding dimension.
	Dimension() int
}
