package llm

import (
	"context"
	"fmt"
	"strings"
)

// NewCompleter builds the completer for a provider name. An empty name
// means the OpenAI-compatible client.
func NewCompleter(ctx context.Context, provider, apiKey string, opts ...ClientOption) (Completer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key required for provider %q", provider)
	}

	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderOpenAI:
		return NewClient(apiKey, opts...), nil
	case ProviderGemini:
		client, err := NewGeminiClient(ctx, apiKey, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
