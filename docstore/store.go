package docstore

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a document ID has never been ingested.
var ErrNotFound = errors.New("document not found")

// Repository stores documents at ingest time and serves them read-only
// afterwards. A document becomes visible to Get only once Put has returned.
type Repository interface {
	Put(ctx context.Context, doc Document) error
	Get(ctx context.Context, id uuid.UUID) (Document, error)
	List(ctx context.Context) ([]DocumentInfo, error)
}

// MemoryStore keeps documents in process memory. Put replaces the whole
// entry for an ID, so readers only ever observe complete documents.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[uuid.UUID]Document)}
}

func (s *MemoryStore) Put(_ context.Context, doc Document) error {
	if doc.Index == nil {
		return errors.New("document has no index")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (s *MemoryStore) List(_ context.Context) ([]DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]DocumentInfo, 0, len(s.docs))
	for _, doc := range s.docs {
		infos = append(infos, DocumentInfo{
			ID:         doc.ID,
			Filename:   doc.Filename,
			ChunkCount: len(doc.Chunks),
			UploadedAt: doc.UploadedAt,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UploadedAt.Before(infos[j].UploadedAt)
	})

	return infos, nil
}

var _ Repository = (*MemoryStore)(nil)
