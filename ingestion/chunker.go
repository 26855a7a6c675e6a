package ingestion

import (
	"strings"

	"github.com/fabfab/doc-intel/docstore"
)

// Chunking defaults, empirically tuned for short logistics documents.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

// ChunkText splits text into overlapping chunks along paragraph boundaries.
// Paragraphs accumulate into a chunk until the next one would push it past
// chunkSize; the last overlap characters of each emitted chunk seed the next
// for context continuity. Text without blank-line structure falls back to
// greedy word packing, which also bounds every chunk at chunkSize. Chunks
// are indexed sequentially in reading order.
func ChunkText(text string, chunkSize, overlap int) []docstore.Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}

	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	paragraphs := splitParagraphs(normalized)

	if len(paragraphs) <= 1 {
		return chunkWords(normalized, chunkSize, overlap)
	}

	chunks := make([]docstore.Chunk, 0)
	current := ""

	for _, paragraph := range paragraphs {
		if current != "" && len(current)+len(paragraph) > chunkSize {
			chunks = append(chunks, docstore.Chunk{Text: current, Index: len(chunks)})
			if carry := tail(current, overlap); carry != "" {
				current = carry + " " + paragraph
			} else {
				current = paragraph
			}
			continue
		}

		if current == "" {
			current = paragraph
		} else {
			current += "\n\n" + paragraph
		}
	}

	if current != "" {
		chunks = append(chunks, docstore.Chunk{Text: current, Index: len(chunks)})
	}

	return chunks
}

func splitParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	paragraphs := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

// chunkWords greedily packs whitespace-separated words into chunks of at
// most chunkSize characters, carrying the trailing overlap between
// consecutive chunks.
func chunkWords(text string, chunkSize, overlap int) []docstore.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]docstore.Chunk, 0)
	current := ""

	for _, word := range words {
		if current == "" {
			current = word
			continue
		}
		if len(current)+1+len(word) > chunkSize {
			chunks = append(chunks, docstore.Chunk{Text: current, Index: len(chunks)})
			if carry := tail(current, overlap); carry != "" {
				current = carry + " " + word
			} else {
				current = word
			}
			continue
		}
		current += " " + word
	}

	if current != "" {
		chunks = append(chunks, docstore.Chunk{Text: current, Index: len(chunks)})
	}

	return chunks
}

// tail returns the last n bytes of s, the whole string when shorter.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
