// File: internal/brain/openai.go
package brain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/idofrizler/phone-buddy/internal/config"
)

// OpenAIClient talks to the OpenAI chat completions API, or to any
// OpenAI-compatible local server when an endpoint override is configured.
type OpenAIClient struct {
	client *openai.Client
	cfg    config.LLMConfig
	logger *zap.Logger
}

// NewOpenAIClient initializes the client. An empty API key is allowed when
// an endpoint override points at a local server.
func NewOpenAIClient(cfg config.LLMConfig, logger *zap.Logger) (*OpenAIClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		// local servers validate nothing but reject a missing header
		apiKey = "local"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(cfg.APITimeout),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	client := openai.NewClient(opts...)
	return &OpenAIClient{
		client: &client,
		cfg:    cfg,
		logger: logger.Named("llm_client.openai"),
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(req.System),
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: openai.Opt(c.cfg.Temperature),
		MaxTokens:   openai.Opt(int64(c.cfg.MaxTokens)),
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	b.MaxInterval = 30 * time.Second

	var content string
	operation := func() error {
		startTime := time.Now()
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return c.classifyError(err)
		}

		if len(resp.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("openAI API returned no choices"))
		}
		choice := resp.Choices[0]
		if choice.Message.Content == "" {
			return fmt.Errorf("openAI API returned empty content (finish_reason: %s)", choice.FinishReason)
		}

		c.logger.Info("LLM generation complete (OpenAI)",
			zap.Duration("duration", time.Since(startTime)),
			zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		)
		content = choice.Message.Content
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", &BackendError{Provider: string(config.ProviderOpenAI), Cause: err}
	}
	return content, nil
}

// classifyError decides whether an SDK error is worth retrying. Rate limits
// and server-side failures are transient; everything else is permanent.
func (c *OpenAIClient) classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable:
			c.logger.Warn("Transient API error, retrying...",
				zap.Int("status", apiErr.StatusCode))
			return err
		default:
			return backoff.Permanent(err)
		}
	}
	// no typed error means the request never completed; treat as network
	c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
	return err
}
