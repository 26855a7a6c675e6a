package rag

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fabfab/doc-intel/docstore"
	"github.com/fabfab/doc-intel/embeddings"
	"github.com/fabfab/doc-intel/llm"
)

type fixedEmbedder struct {
	vector []float32
	calls  int
}

func (f *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = f.vector
	}
	return vectors, nil
}

var _ embeddings.Embedder = (*fixedEmbedder)(nil)

type scriptedLLM struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (s *scriptedLLM) generate(messages []llm.Message) (string, error) {
	s.calls++
	if len(messages) > 0 {
		s.prompts = append(s.prompts, messages[len(messages)-1].Content)
	}
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", nil
	}
	response := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return response, nil
}

func (s *scriptedLLM) Generate(_ context.Context, messages []llm.Message) (string, error) {
	return s.generate(messages)
}

func (s *scriptedLLM) GenerateJSON(_ context.Context, messages []llm.Message) (string, error) {
	return s.generate(messages)
}

var _ llm.Client = (*scriptedLLM)(nil)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func storeWithDocument(t *testing.T, texts []string, vectors [][]float32) (*docstore.MemoryStore, uuid.UUID) {
	t.Helper()

	chunks := make([]docstore.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = docstore.Chunk{Text: text, Index: i}
	}

	index, err := docstore.NewIndex(chunks, vectors)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}

	doc := docstore.Document{
		ID:         uuid.New(),
		Filename:   "rate.txt",
		Text:       strings.Join(texts, "\n\n"),
		Chunks:     chunks,
		Index:      index,
		UploadedAt: time.Now().UTC(),
	}

	store := docstore.NewMemoryStore()
	if err := store.Put(context.Background(), doc); err != nil {
		t.Fatalf("put document: %v", err)
	}
	return store, doc.ID
}

func TestAskAnswersFromRelevantChunk(t *testing.T) {
	store, docID := storeWithDocument(t,
		[]string{"The carrier rate is $2,450.00.", "Pickup is January 15 in Dallas."},
		[][]float32{{1, 0}, {0, 1}},
	)

	model := &scriptedLLM{responses: []string{"The carrier rate is $2,450.00."}}
	svc := NewService(store, &fixedEmbedder{vector: []float32{1, 0}}, model, testLogger(), DefaultParams())

	answer, err := svc.Ask(context.Background(), docID, "What is the carrier rate?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if answer.GuardrailTriggered {
		t.Fatal("guardrail should not trigger on a strong match")
	}
	if answer.Text != "The carrier rate is $2,450.00." {
		t.Fatalf("unexpected answer text: %q", answer.Text)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("expected both retrieved chunks as sources, got %d", len(answer.Sources))
	}
	if model.calls != 1 {
		t.Fatalf("expected one generation call, got %d", model.calls)
	}

	// Scores 1.0 and 0.0 average to 0.5; the 5-word answer covers a quarter
	// of the completeness target and overlaps the context fully.
	if math.Abs(answer.Confidence.Total-0.65) > 1e-6 {
		t.Fatalf("total confidence = %f, want 0.65", answer.Confidence.Total)
	}
	if !strings.HasPrefix(answer.Reasoning, "Medium confidence") {
		t.Fatalf("expected medium band, got %q", answer.Reasoning)
	}

	if len(model.prompts) != 1 || !strings.Contains(model.prompts[0], "The carrier rate is $2,450.00.") {
		t.Fatal("prompt should embed the retrieved excerpt")
	}
}

func TestAskHardGateSkipsGeneration(t *testing.T) {
	store, docID := storeWithDocument(t,
		[]string{"The carrier rate is $2,450.00."},
		[][]float32{{1, 0}},
	)

	// Query nearly orthogonal to the only chunk: cosine just under 0.1.
	model := &scriptedLLM{responses: []string{"should never be called"}}
	svc := NewService(store, &fixedEmbedder{vector: []float32{0.1, 0.995}}, model, testLogger(), DefaultParams())

	answer, err := svc.Ask(context.Background(), docID, "What is the weather in Tokyo?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !answer.GuardrailTriggered {
		t.Fatal("expected guardrail refusal")
	}
	if answer.Text != refusalMessage {
		t.Fatalf("unexpected refusal text: %q", answer.Text)
	}
	if answer.Confidence.Total != 0 {
		t.Fatalf("refusal should carry zero confidence, got %f", answer.Confidence.Total)
	}
	if model.calls != 0 {
		t.Fatalf("hard gate must not spend an LLM call, got %d", model.calls)
	}
	if len(answer.Sources) == 0 {
		t.Fatal("refusal should still report what was retrieved")
	}
}

func TestAskSentinelTriggersGuardrail(t *testing.T) {
	store, docID := storeWithDocument(t,
		[]string{"The carrier rate is $2,450.00."},
		[][]float32{{1, 0}},
	)

	model := &scriptedLLM{responses: []string{"Information not found in document."}}
	svc := NewService(store, &fixedEmbedder{vector: []float32{1, 0}}, model, testLogger(), DefaultParams())

	answer, err := svc.Ask(context.Background(), docID, "Who signed the contract?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !answer.GuardrailTriggered {
		t.Fatal("sentinel response should trigger the guardrail")
	}
	if answer.Text != "Information not found in document." {
		t.Fatalf("sentinel text should be preserved, got %q", answer.Text)
	}
	if answer.Confidence.Total != 0 {
		t.Fatalf("sentinel answer should carry zero confidence, got %f", answer.Confidence.Total)
	}
}

func TestAskLowConfidenceWarning(t *testing.T) {
	store, docID := storeWithDocument(t,
		[]string{"The carrier rate is $2,450.00."},
		[][]float32{{1, 0}},
	)

	// Cosine just above the refusal gate, uncertain answer with no context
	// overlap: every factor lands low.
	model := &scriptedLLM{responses: []string{"Possibly unknown."}}
	svc := NewService(store, &fixedEmbedder{vector: []float32{0.3, 0.9539392}}, model, testLogger(), DefaultParams())

	answer, err := svc.Ask(context.Background(), docID, "What is the fuel surcharge?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if answer.GuardrailTriggered {
		t.Fatal("soft gate should not refuse")
	}
	if answer.Confidence.Certainty != 0 {
		t.Fatalf("uncertain wording should zero certainty, got %f", answer.Confidence.Certainty)
	}
	if answer.Confidence.Total >= DefaultParams().LowConfidence {
		t.Fatalf("expected total under the warning threshold, got %f", answer.Confidence.Total)
	}
	if !strings.HasPrefix(answer.Reasoning, "Low confidence") {
		t.Fatalf("expected low band, got %q", answer.Reasoning)
	}
}

func TestAskUnknownDocument(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := NewService(store, &fixedEmbedder{vector: []float32{1, 0}}, &scriptedLLM{}, testLogger(), DefaultParams())

	_, err := svc.Ask(context.Background(), uuid.New(), "What is the rate?")
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	store, docID := storeWithDocument(t,
		[]string{"The carrier rate is $2,450.00."},
		[][]float32{{1, 0}},
	)

	embedder := &fixedEmbedder{vector: []float32{1, 0}}
	svc := NewService(store, embedder, &scriptedLLM{}, testLogger(), DefaultParams())

	if _, err := svc.Ask(context.Background(), docID, "   "); err == nil {
		t.Fatal("expected error for blank question")
	}
	if embedder.calls != 0 {
		t.Fatalf("blank question should not reach the embedder, got %d calls", embedder.calls)
	}
}

func TestAskGenerationFailure(t *testing.T) {
	store, docID := storeWithDocument(t,
		[]string{"The carrier rate is $2,450.00."},
		[][]float32{{1, 0}},
	)

	model := &scriptedLLM{err: llm.ErrUnavailable}
	svc := NewService(store, &fixedEmbedder{vector: []float32{1, 0}}, model, testLogger(), DefaultParams())

	_, err := svc.Ask(context.Background(), docID, "What is the rate?")
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("expected wrapped llm error, got %v", err)
	}
}

func TestRetrieveRanksAndBounds(t *testing.T) {
	store, docID := storeWithDocument(t,
		[]string{"east", "north", "northeast"},
		[][]float32{{1, 0}, {0, 1}, {1, 1}},
	)

	svc := NewService(store, &fixedEmbedder{vector: []float32{1, 0}}, &scriptedLLM{}, testLogger(), DefaultParams())

	results, err := svc.Retrieve(context.Background(), docID, "which direction", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.Index != 0 {
		t.Fatalf("expected exact match first, got chunk %d", results[0].Chunk.Index)
	}
	if results[1].Score > results[0].Score {
		t.Fatal("results not sorted by descending score")
	}
}
