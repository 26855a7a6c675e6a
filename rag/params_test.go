package rag

import "testing"

func TestWithDefaultsFillsZeroFields(t *testing.T) {
	defaults := DefaultParams()

	filled := Params{}.withDefaults()
	if filled != defaults {
		t.Fatalf("zero params should become defaults: %+v", filled)
	}

	partial := Params{TopK: 5, MinSimilarity: 0.5}.withDefaults()
	if partial.TopK != 5 || partial.MinSimilarity != 0.5 {
		t.Fatalf("explicit fields should survive: %+v", partial)
	}
	if partial.LowConfidence != defaults.LowConfidence {
		t.Fatalf("unset threshold should fall back: %+v", partial)
	}
	if partial.WeightSimilarity != defaults.WeightSimilarity {
		t.Fatalf("unset weights should fall back as a group: %+v", partial)
	}
}

func TestWithDefaultsKeepsExplicitWeights(t *testing.T) {
	custom := Params{WeightSimilarity: 1}.withDefaults()

	if custom.WeightSimilarity != 1 {
		t.Fatalf("explicit weight lost: %+v", custom)
	}
	if custom.WeightCompleteness != 0 || custom.WeightOverlap != 0 || custom.WeightCertainty != 0 {
		t.Fatalf("setting one weight should leave the others alone: %+v", custom)
	}
}
