package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fabfab/doc-intel/docstore"
	"github.com/fabfab/doc-intel/embeddings"
)

// ErrEmptyDocument is returned when extraction yields no chunkable text.
// Empty documents are rejected at ingest and never reach retrieval.
var ErrEmptyDocument = errors.New("document contains no text")

type Service struct {
	store        docstore.Repository
	embedder     embeddings.Embedder
	logger       *log.Logger
	chunkSize    int
	chunkOverlap int
}

func NewService(store docstore.Repository, embedder embeddings.Embedder, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		store:        store,
		embedder:     embedder,
		logger:       logger,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
}

// Ingest extracts text from the uploaded file, chunks it, embeds the chunks
// in one batched call, and stores the finished document. The document is
// only visible to readers after the store write returns.
func (s *Service) Ingest(ctx context.Context, filename string, data []byte) (docstore.Document, error) {
	if s.embedder == nil {
		return docstore.Document{}, fmt.Errorf("embedder not configured")
	}

	text, err := ExtractText(data, filename)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("extract text from %s: %w", filename, err)
	}

	chunks := ChunkText(text, s.chunkSize, s.chunkOverlap)
	if len(chunks) == 0 {
		return docstore.Document{}, fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}

	index, err := docstore.BuildIndex(ctx, s.embedder, chunks)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("index %s: %w", filename, err)
	}

	doc := docstore.Document{
		ID:         uuid.New(),
		Filename:   filename,
		Text:       text,
		Chunks:     chunks,
		Index:      index,
		UploadedAt: time.Now().UTC(),
	}

	if err := s.store.Put(ctx, doc); err != nil {
		return docstore.Document{}, fmt.Errorf("store %s: %w", filename, err)
	}

	s.logger.Printf("ingested %s (%d chunks)", filename, len(chunks))
	return doc, nil
}
