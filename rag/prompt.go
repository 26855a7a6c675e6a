package rag

import (
	"strings"

	"github.com/fabfab/doc-intel/docstore"
)

// notFoundSentinel is the phrase the prompt tells the model to emit when the
// excerpts do not contain the answer. Its presence in a response triggers a
// guardrail.
const notFoundSentinel = "Information not found in document."

// refusalMessage is the fixed text of a hard refusal.
const refusalMessage = "No relevant information found in the document. The question may be outside the document's scope."

const guardrailReasoning = "Guardrail triggered: no relevant content"

// buildPrompt composes the grounded question prompt. The model is
// constrained to the retrieved excerpts and given the sentinel for missing
// information.
func buildPrompt(question string, retrieved []docstore.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("Based ONLY on the following document excerpts, answer the question.\n")
	sb.WriteString("If the information is not in the excerpts, say \"")
	sb.WriteString(notFoundSentinel)
	sb.WriteString("\"\n\nDocument excerpts:\n")
	for i, item := range retrieved {
		if i > 0 {
			sb.WriteString("\n\n---\n\n")
		}
		sb.WriteString(item.Chunk.Text)
	}
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nProvide a direct, concise answer based only on the information above.")
	return sb.String()
}

func containsSentinel(answer string) bool {
	return strings.Contains(strings.ToLower(answer), strings.ToLower(notFoundSentinel))
}

func maxScore(retrieved []docstore.ScoredChunk) float64 {
	best := -1.0
	for _, item := range retrieved {
		if item.Score > best {
			best = item.Score
		}
	}
	return best
}

func chunkTexts(retrieved []docstore.ScoredChunk) []string {
	texts := make([]string, len(retrieved))
	for i, item := range retrieved {
		texts[i] = item.Chunk.Text
	}
	return texts
}
