package rag

// Params holds the tuned constants of the pipeline. The values are
// empirical, not derived; changing one shifts the calibration of the
// others.
type Params struct {
	// TopK is how many chunks retrieval returns per question.
	TopK int
	// MinSimilarity is the hard refusal gate: questions whose best
	// retrieval score falls below it are refused before any LLM call.
	MinSimilarity float64
	// LowConfidence and HighConfidence bound the display bands; answers
	// scoring under LowConfidence carry a warning but are not discarded.
	LowConfidence  float64
	HighConfidence float64

	// Confidence factor weights. Certainty contributes its weight in full
	// unless uncertain language is detected.
	WeightSimilarity   float64
	WeightCompleteness float64
	WeightOverlap      float64
	WeightCertainty    float64
}

func DefaultParams() Params {
	return Params{
		TopK:               3,
		MinSimilarity:      0.25,
		LowConfidence:      0.4,
		HighConfidence:     0.7,
		WeightSimilarity:   0.4,
		WeightCompleteness: 0.2,
		WeightOverlap:      0.2,
		WeightCertainty:    0.2,
	}
}

// withDefaults fills unset fields from DefaultParams. Zero values count as
// unset, so a gate cannot be disabled by zeroing its threshold; the weights
// are filled as a group only when all four are zero.
func (p Params) withDefaults() Params {
	defaults := DefaultParams()
	if p.TopK <= 0 {
		p.TopK = defaults.TopK
	}
	if p.MinSimilarity == 0 {
		p.MinSimilarity = defaults.MinSimilarity
	}
	if p.LowConfidence == 0 {
		p.LowConfidence = defaults.LowConfidence
	}
	if p.HighConfidence == 0 {
		p.HighConfidence = defaults.HighConfidence
	}
	if p.WeightSimilarity == 0 && p.WeightCompleteness == 0 && p.WeightOverlap == 0 && p.WeightCertainty == 0 {
		p.WeightSimilarity = defaults.WeightSimilarity
		p.WeightCompleteness = defaults.WeightCompleteness
		p.WeightOverlap = defaults.WeightOverlap
		p.WeightCertainty = defaults.WeightCertainty
	}
	return p
}

// Reasoning maps a total confidence to its display band.
func (p Params) Reasoning(total float64) string {
	switch {
	case total >= p.HighConfidence:
		return "High confidence: Strong retrieval match with complete answer"
	case total >= p.LowConfidence:
		return "Medium confidence: Partial match found in document"
	default:
		return "Low confidence: Weak or no relevant information found"
	}
}
