package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/fabfab/doc-intel/config"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrUnavailable marks transient completion failures (timeouts, rate limits,
// transport errors). Callers may retry with backoff; this package does not.
var ErrUnavailable = errors.New("llm unavailable")

type Message struct {
	Role    string
	Content string
}

// Client is a fallible external completion service.
type Client interface {
	// Generate returns a free-text completion for the conversation.
	Generate(ctx context.Context, messages []Message) (string, error)
	// GenerateJSON returns a completion constrained to a single JSON object.
	// The constraint is best-effort; callers must still validate the output.
	GenerateJSON(ctx context.Context, messages []Message) (string, error)
}

type Options struct {
	Provider string
	Model    string

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func NewClient(cfg config.Config) (Client, error) {
	opts := Options{
		Provider:      cfg.LLM.Provider,
		Model:         cfg.LLM.Model,
		OllamaHost:    cfg.OllamaHost,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	}

	switch opts.Provider {
	case config.ProviderOllama:
		return NewOllamaClient(opts), nil
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", opts.Provider)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrUnavailable, err))
}
