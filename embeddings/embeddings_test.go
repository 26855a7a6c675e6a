package embeddings

import (
	"testing"

	"github.com/fabfab/doc-intel/config"
)

func TestNewEmbedderSelectsProvider(t *testing.T) {
	cfg := config.Config{}
	cfg.Embeddings.Provider = config.ProviderOllama
	cfg.Embeddings.Model = "nomic-embed-text"
	cfg.OllamaHost = "http://localhost:11434"

	embedder, err := NewEmbedder(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embedder == nil {
		t.Fatal("expected an embedder")
	}

	cfg.Embeddings.Provider = config.ProviderOpenAI
	cfg.OpenAIAPIKey = "sk-test"

	embedder, err = NewEmbedder(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embedder == nil {
		t.Fatal("expected an embedder")
	}
}

func TestNewEmbedderRequiresOpenAIKey(t *testing.T) {
	cfg := config.Config{}
	cfg.Embeddings.Provider = config.ProviderOpenAI

	if _, err := NewEmbedder(cfg); err == nil {
		t.Fatal("expected error when OPENAI_API_KEY is missing")
	}
}

func TestNewEmbedderRejectsUnknownProvider(t *testing.T) {
	cfg := config.Config{}
	cfg.Embeddings.Provider = "tarot"

	if _, err := NewEmbedder(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
