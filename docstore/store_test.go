package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func indexedDocument(t *testing.T, filename string, uploadedAt time.Time) Document {
	t.Helper()

	chunks := []Chunk{{Text: "chunk", Index: 0}}
	index, err := NewIndex(chunks, [][]float32{{1, 0}})
	if err != nil {
		t.Fatalf("build index: %v", err)
	}

	return Document{
		ID:         uuid.New(),
		Filename:   filename,
		Text:       "chunk",
		Chunks:     chunks,
		Index:      index,
		UploadedAt: uploadedAt,
	}
}

func TestMemoryStorePutGet(t *testing.T) {
	store := NewMemoryStore()
	doc := indexedDocument(t, "rate.txt", time.Now().UTC())

	if err := store.Put(context.Background(), doc); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Filename != doc.Filename || len(got.Chunks) != 1 {
		t.Fatalf("stored document mismatch: %+v", got)
	}
}

func TestMemoryStoreGetUnknownID(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreRejectsUnindexedDocument(t *testing.T) {
	store := NewMemoryStore()
	doc := indexedDocument(t, "rate.txt", time.Now().UTC())
	doc.Index = nil

	if err := store.Put(context.Background(), doc); err == nil {
		t.Fatal("expected error for document without index")
	}
}

func TestMemoryStorePutReplacesDocument(t *testing.T) {
	store := NewMemoryStore()
	doc := indexedDocument(t, "rate.txt", time.Now().UTC())

	if err := store.Put(context.Background(), doc); err != nil {
		t.Fatalf("first put: %v", err)
	}

	doc.Filename = "rate_v2.txt"
	if err := store.Put(context.Background(), doc); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := store.Get(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Filename != "rate_v2.txt" {
		t.Fatalf("expected replacement, got %q", got.Filename)
	}

	infos, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected a single entry after replacement, got %d", len(infos))
	}
}

func TestMemoryStoreListSortedByUploadTime(t *testing.T) {
	store := NewMemoryStore()
	base := time.Now().UTC()

	newest := indexedDocument(t, "newest.txt", base.Add(2*time.Minute))
	oldest := indexedDocument(t, "oldest.txt", base)
	middle := indexedDocument(t, "middle.txt", base.Add(time.Minute))

	for _, doc := range []Document{newest, oldest, middle} {
		if err := store.Put(context.Background(), doc); err != nil {
			t.Fatalf("put %s: %v", doc.Filename, err)
		}
	}

	infos, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(infos))
	}

	want := []string{"oldest.txt", "middle.txt", "newest.txt"}
	for i, info := range infos {
		if info.Filename != want[i] {
			t.Fatalf("position %d: got %q, want %q", i, info.Filename, want[i])
		}
	}
}
