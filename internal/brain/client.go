// File: internal/brain/client.go
package brain

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/idofrizler/phone-buddy/internal/config"
)

// Message is one turn of backend conversation.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Request is a full completion request: a static system instruction plus
// the conversation so far.
type Request struct {
	System   string
	Messages []Message
}

// Client abstracts the reasoning backend. Implementations handle their own
// transport retries; an error returned here means retries are exhausted.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// NewClient builds the configured provider's client.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (supported: %s, %s)",
			cfg.Provider, config.ProviderOpenAI, config.ProviderGemini)
	}
}
