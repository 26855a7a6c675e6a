package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore persists documents, chunks, and embeddings in Postgres with
// the pgvector column type. Retrieval reloads the document's rows in chunk
// order and rebuilds the in-process index, so search behaves identically to
// MemoryStore.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Put(ctx context.Context, doc Document) (err error) {
	if doc.Index == nil {
		return errors.New("document has no index")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
		INSERT INTO doc_documents (id, filename, content, uploaded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET filename = EXCLUDED.filename,
		    content = EXCLUDED.content,
		    uploaded_at = EXCLUDED.uploaded_at
	`, doc.ID, doc.Filename, doc.Text, doc.UploadedAt); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	if _, err = tx.Exec(ctx, "DELETE FROM doc_chunks WHERE document_id = $1", doc.ID); err != nil {
		return fmt.Errorf("clear existing chunks: %w", err)
	}

	vectors := doc.Index.Vectors()
	for i, chunk := range doc.Chunks {
		vec := pgvector.NewVector(vectors[i])
		if _, err = tx.Exec(ctx, `
			INSERT INTO doc_chunks (id, document_id, chunk_index, content, embedding)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New(), doc.ID, chunk.Index, chunk.Text, vec); err != nil {
			return fmt.Errorf("insert chunk %d: %w", chunk.Index, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	doc := Document{ID: id}

	err := s.pool.QueryRow(ctx, `
		SELECT filename, content, uploaded_at
		FROM doc_documents
		WHERE id = $1
	`, id).Scan(&doc.Filename, &doc.Text, &doc.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("query document: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT chunk_index, content, embedding
		FROM doc_chunks
		WHERE document_id = $1
		ORDER BY chunk_index
	`, id)
	if err != nil {
		return Document{}, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var (
		chunks  []Chunk
		vectors [][]float32
	)
	for rows.Next() {
		var chunk Chunk
		var vec pgvector.Vector
		if err := rows.Scan(&chunk.Index, &chunk.Text, &vec); err != nil {
			return Document{}, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
		vectors = append(vectors, vec.Slice())
	}
	if rows.Err() != nil {
		return Document{}, rows.Err()
	}

	index, err := NewIndex(chunks, vectors)
	if err != nil {
		return Document{}, err
	}

	doc.Chunks = chunks
	doc.Index = index
	return doc, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT d.id, d.filename, d.uploaded_at, COUNT(c.id)
		FROM doc_documents d
		LEFT JOIN doc_chunks c ON c.document_id = d.id
		GROUP BY d.id, d.filename, d.uploaded_at
		ORDER BY d.uploaded_at
	`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	infos := make([]DocumentInfo, 0)
	for rows.Next() {
		var info DocumentInfo
		var uploadedAt time.Time
		if err := rows.Scan(&info.ID, &info.Filename, &uploadedAt, &info.ChunkCount); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		info.UploadedAt = uploadedAt
		infos = append(infos, info)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return infos, nil
}

var _ Repository = (*PostgresStore)(nil)
