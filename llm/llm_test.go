package llm

import (
	"errors"
	"testing"

	"github.com/fabfab/doc-intel/config"
)

func TestNewClientSelectsProvider(t *testing.T) {
	cfg := config.Config{}
	cfg.LLM.Provider = config.ProviderOllama
	cfg.LLM.Model = "llama3.1:8b"
	cfg.OllamaHost = "http://localhost:11434"

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatal("expected a client")
	}

	cfg.LLM.Provider = config.ProviderOpenAI
	cfg.OpenAIAPIKey = "sk-test"

	client, err = NewClient(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatal("expected a client")
	}
}

func TestNewClientRequiresOpenAIKey(t *testing.T) {
	cfg := config.Config{}
	cfg.LLM.Provider = config.ProviderOpenAI

	if _, err := NewClient(cfg); err == nil {
		t.Fatal("expected error when OPENAI_API_KEY is missing")
	}
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	cfg := config.Config{}
	cfg.LLM.Provider = "carrier-pigeon"

	if _, err := NewClient(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestUnavailableWraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := unavailable("ollama chat", cause)

	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable in chain, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected original cause in chain, got %v", err)
	}
}
