package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/mindfulhq/mindful/internal/config"
)

// ErrUnavailable wraps any AI collaborator failure: timeouts, transport
// errors, non-2xx responses, unparseable output. Extraction propagates it to
// the caller; energy assessment and context matching recover from it locally.
var ErrUnavailable = errors.New("ai collaborator unavailable")

// Client is the interface for AI providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (*Response, error)
}

// Response holds the result of an AI completion.
type Response struct {
	Content  string
	Provider string
}

// NewClient creates an AI client for the configured provider. The apiKey
// argument is the per-request credential; when empty, the configured default
// key is used. Returning a nil Client with nil error means no collaborator is
// available and callers should use their deterministic paths.
func NewClient(cfg config.AIConfig, apiKey string) (Client, error) {
	switch cfg.Provider {
	case "gemini":
		key := apiKey
		if key == "" {
			key = cfg.GeminiKey
		}
		if key == "" {
			return nil, nil
		}
		model := cfg.Model
		if model == "" {
			model = "gemini-2.0-flash"
		}
		return NewGemini(key, model), nil
	case "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := cfg.OllamaModel
		if model == "" {
			model = "llama3.2"
		}
		return NewOllama(url, model), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %q", cfg.Provider)
	}
}
