package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/fabfab/doc-intel/docstore"
	"github.com/fabfab/doc-intel/embeddings"
	"github.com/fabfab/doc-intel/llm"
)

type Service struct {
	store    docstore.Repository
	embedder embeddings.Embedder
	llm      llm.Client
	logger   *log.Logger
	params   Params
}

func NewService(store docstore.Repository, embedder embeddings.Embedder, llmClient llm.Client, logger *log.Logger, params Params) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		store:    store,
		embedder: embedder,
		llm:      llmClient,
		logger:   logger,
		params:   params.withDefaults(),
	}
}

// Retrieve embeds the question and ranks the document's chunks against it.
// Returns docstore.ErrNotFound for unknown document IDs.
func (s *Service) Retrieve(ctx context.Context, docID uuid.UUID, question string, k int) ([]docstore.ScoredChunk, error) {
	doc, err := s.store.Get(ctx, docID)
	if err != nil {
		return nil, err
	}

	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	return doc.Index.Search(vectors[0], k), nil
}

// Ask runs the full question pipeline: retrieval, similarity gate, grounded
// generation, sentinel check, and confidence scoring. Refusals are valid
// answers with GuardrailTriggered set, not errors. The Answer is constructed
// atomically; a failed LLM call yields an error and no partial answer.
func (s *Service) Ask(ctx context.Context, docID uuid.UUID, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("question cannot be empty")
	}
	if s.embedder == nil {
		return Answer{}, fmt.Errorf("embedder is not configured")
	}
	if s.llm == nil {
		return Answer{}, fmt.Errorf("llm client is not configured")
	}

	retrieved, err := s.Retrieve(ctx, docID, question, s.params.TopK)
	if err != nil {
		return Answer{}, err
	}

	sources := chunkTexts(retrieved)

	// Hard gate: refuse before spending an LLM call when nothing relevant
	// was retrieved.
	if len(retrieved) == 0 || maxScore(retrieved) < s.params.MinSimilarity {
		s.logger.Printf("guardrail refusal for question %q (best score %.3f)", question, maxScore(retrieved))
		return Answer{
			Text:               refusalMessage,
			Sources:            sources,
			Reasoning:          guardrailReasoning,
			GuardrailTriggered: true,
		}, nil
	}

	prompt := buildPrompt(question, retrieved)
	raw, err := s.llm.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	text := strings.TrimSpace(raw)

	// The model declaring the information absent counts as a guardrail
	// trigger, same as a failed similarity gate.
	if containsSentinel(text) {
		s.logger.Printf("sentinel guardrail for question %q", question)
		return Answer{
			Text:               text,
			Sources:            sources,
			Reasoning:          guardrailReasoning,
			GuardrailTriggered: true,
		}, nil
	}

	confidence := s.params.Score(text, retrieved)

	// Soft gate: low-confidence answers keep their content but carry the
	// warning band in the reasoning.
	return Answer{
		Text:               text,
		Sources:            sources,
		Confidence:         confidence,
		Reasoning:          s.params.Reasoning(confidence.Total),
		GuardrailTriggered: false,
	}, nil
}
