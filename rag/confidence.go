package rag

import (
	"math"
	"strings"

	"github.com/fabfab/doc-intel/docstore"
)

// completenessTarget is the word count at which an answer stops being
// penalized for brevity.
const completenessTarget = 20

// uncertaintyPhrases zero the certainty factor when present in an answer.
// Plain substring checks; no stemming or negation handling on purpose, as
// the thresholds are calibrated against exactly this behavior.
var uncertaintyPhrases = []string{
	"not sure",
	"unclear",
	"cannot determine",
	"unknown",
}

// Score computes the four-factor confidence for an answer generated from
// the given retrieval set.
func (p Params) Score(answerText string, retrieved []docstore.ScoredChunk) ConfidenceBreakdown {
	similarity := meanClampedScore(retrieved)

	answerWords := tokenize(answerText)
	completeness := math.Min(float64(len(answerWords))/completenessTarget, 1.0)

	overlap := contextOverlap(answerWords, retrieved)

	certainty := p.WeightCertainty
	lower := strings.ToLower(answerText)
	for _, phrase := range uncertaintyPhrases {
		if strings.Contains(lower, phrase) {
			certainty = 0
			break
		}
	}

	total := p.WeightSimilarity*similarity +
		p.WeightCompleteness*completeness +
		p.WeightOverlap*overlap +
		certainty

	return ConfidenceBreakdown{
		RetrievalSimilarity: similarity,
		Completeness:        completeness,
		ContextOverlap:      overlap,
		Certainty:           certainty,
		Total:               total,
	}
}

// meanClampedScore averages the retrieval scores with negatives treated as
// zero relevance.
func meanClampedScore(retrieved []docstore.ScoredChunk) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	var sum float64
	for _, item := range retrieved {
		sum += clamp01(item.Score)
	}
	return sum / float64(len(retrieved))
}

// contextOverlap is the fraction of distinct answer words that also appear
// in the retrieved chunk texts. Zero when the answer has no words.
func contextOverlap(answerWords []string, retrieved []docstore.ScoredChunk) float64 {
	if len(answerWords) == 0 {
		return 0
	}

	contextWords := make(map[string]struct{})
	for _, item := range retrieved {
		for _, word := range tokenize(item.Chunk.Text) {
			contextWords[word] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(answerWords))
	matched := 0
	for _, word := range answerWords {
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		if _, ok := contextWords[word]; ok {
			matched++
		}
	}

	return float64(matched) / float64(len(seen))
}

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
