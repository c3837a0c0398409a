package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zefa-finance/zefa-backend/internal/tools"
)

// Client is the interface every provider adapter implements. The API key
// is passed per call because keys are resolved per user at request time.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, apiKey string, messages []Message, defs []tools.Definition) (*ChatResponse, error)

	// Provider returns the provider name ("openai", "anthropic", "gemini").
	Provider() string
}

// Options configure a provider client.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Logger      *slog.Logger
}

// New creates the client for the named provider.
func New(provider string, opts Options) (Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	switch provider {
	case "openai":
		return NewOpenAIClient(opts), nil
	case "anthropic":
		return NewAnthropicClient(opts), nil
	case "gemini":
		return NewGeminiClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}
