// Package rag answers natural-language questions about a single ingested
// document: retrieval over the document's embedding index, guardrails
// against unsupported answers, and multi-factor confidence scoring.
package rag

// ConfidenceBreakdown records each scoring factor alongside the combined
// total. It is computed once per answer and frozen with it.
type ConfidenceBreakdown struct {
	RetrievalSimilarity float64 `json:"retrieval_similarity"`
	Completeness        float64 `json:"completeness"`
	ContextOverlap      float64 `json:"context_overlap"`
	Certainty           float64 `json:"certainty"`
	Total               float64 `json:"total"`
}

// Answer is the final result of one question. Immutable after construction.
type Answer struct {
	Text               string              `json:"answer"`
	Sources            []string            `json:"sources"`
	Confidence         ConfidenceBreakdown `json:"confidence"`
	Reasoning          string              `json:"reasoning"`
	GuardrailTriggered bool                `json:"guardrail_triggered"`
}
