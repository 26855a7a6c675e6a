package docstore

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/fabfab/doc-intel/embeddings"
)

// Index holds one embedding vector per chunk and answers exact nearest
// neighbour queries by exhaustive cosine comparison. It is immutable once
// built.
type Index struct {
	chunks  []Chunk
	vectors [][]float32
}

// NewIndex pairs chunks with precomputed vectors. The two slices must have
// equal length and matching positions.
func NewIndex(chunks []Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("index parity violation: %d chunks, %d vectors", len(chunks), len(vectors))
	}
	return &Index{
		chunks:  append([]Chunk(nil), chunks...),
		vectors: append([][]float32(nil), vectors...),
	}, nil
}

// BuildIndex embeds all chunk texts in a single batched call and pairs the
// resulting vectors with the chunks.
func BuildIndex(ctx context.Context, embedder embeddings.Embedder, chunks []Chunk) (*Index, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	return NewIndex(chunks, vectors)
}

func (ix *Index) Len() int {
	return len(ix.chunks)
}

// Vectors exposes the stored embeddings for persistence. Callers must not
// modify the returned slices.
func (ix *Index) Vectors() [][]float32 {
	return ix.vectors
}

// Search scores every stored vector against query and returns the top k,
// sorted by descending similarity. Ties go to the lower chunk index so
// results are deterministic.
func (ix *Index) Search(query []float32, k int) []ScoredChunk {
	results := make([]ScoredChunk, len(ix.chunks))
	for i := range ix.chunks {
		results[i] = ScoredChunk{
			Chunk: ix.chunks[i],
			Score: Cosine(query, ix.vectors[i]),
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Index < results[j].Chunk.Index
	})

	if k < 0 {
		k = 0
	}
	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// Cosine computes cosine similarity in [-1, 1]. Mismatched lengths or a
// zero-norm operand score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
