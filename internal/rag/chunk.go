package rag

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// Chunk is one retrievable unit of ingested context.
type Chunk struct {
	ChunkID     int    `json:"chunk_id"`
	Text        string `json:"text"`
	SourceRowID int64  `json:"source_row_id"`
}

var blankLines = regexp.MustCompile(`\n\s*\n`)

// SplitChunks splits text on runs of blank lines, trims each piece and
// drops empties.
func SplitChunks(text string) []string {
	parts := blankLines.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BuildChunks chunks the active context rows in insertion order. Rows are
// separated by blank lines, so chunks never span rows and each keeps its
// source row as provenance.
func BuildChunks(rows []store.ContextRow) []Chunk {
	var chunks []Chunk
	for _, row := range rows {
		for _, text := range SplitChunks(row.Content) {
			chunks = append(chunks, Chunk{
				ChunkID:     len(chunks),
				Text:        text,
				SourceRowID: row.ID,
			})
		}
	}
	return chunks
}

// RulesHash identifies a context state: the hex SHA-256 of the active row
// contents joined in insertion order. Identical content always maps to the
// same cache entry.
func RulesHash(rows []store.ContextRow) string {
	h := sha256.New()
	for i, row := range rows {
		if i > 0 {
			h.Write([]byte("\n\n"))
		}
		h.Write([]byte(row.Content))
	}
	return hex.EncodeToString(h.Sum(nil))
}
