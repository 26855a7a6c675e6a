// Package docstore owns ingested documents: their chunks, their embedding
// index, and the repository the rest of the system reads them from. Documents
// are written once at ingest and never mutated afterwards.
package docstore

import (
	"time"

	"github.com/google/uuid"
)

// Chunk is a contiguous segment of document text, the unit of retrieval.
// Index is the 0-based position in document reading order.
type Chunk struct {
	Text  string
	Index int
}

// Document is one ingested file. Chunks and Index are paired by position and
// read-only after construction.
type Document struct {
	ID         uuid.UUID
	Filename   string
	Text       string
	Chunks     []Chunk
	Index      *Index
	UploadedAt time.Time
}

// DocumentInfo is the listing view of a stored document.
type DocumentInfo struct {
	ID         uuid.UUID
	Filename   string
	ChunkCount int
	UploadedAt time.Time
}

// ScoredChunk pairs a chunk with its cosine similarity to a query vector.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}
