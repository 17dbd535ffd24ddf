// Package ai wraps the chat completion provider used to answer customer
// messages. It exposes a tool-calling chat client, the closed set of business
// functions the model may invoke, and the invoker that drives the
// call/execute loop until a final text response is produced.
package ai

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/atendai/atendai/internal/retry"
)

// Config holds the LLM provider configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxRetries int
	Timeout    time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.openai.com/v1",
		Model:      "gpt-4o-mini",
		MaxRetries: 3,
		Timeout:    60 * time.Second,
	}
}

// LLMService is a thin client over the chat completion API with retry.
type LLMService struct {
	client *openai.Client
	config *Config
	retry  retry.Policy
}

// NewLLMService creates a new LLM service.
func NewLLMService(cfg *Config) *LLMService {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.MaxRetries
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		slog.Debug("llm request failed, retrying",
			"attempt", attempt,
			"wait_time", wait,
			"error", err)
	}

	return &LLMService{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		retry:  policy,
	}
}

// ChatResponse is a single completion round. Token counts come from the
// provider's usage block and cover this round only.
type ChatResponse struct {
	Message      openai.ChatCompletionMessage
	InputTokens  int64
	OutputTokens int64
}

// ChatWithTools performs one chat completion round, offering the given tools.
// The returned message may contain tool calls instead of content.
func (s *LLMService) ChatWithTools(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (*ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	var result *ChatResponse
	err := s.retry.Do(ctx, func() error {
		req := openai.ChatCompletionRequest{
			Model:    s.config.Model,
			Messages: messages,
		}
		if len(tools) > 0 {
			req.Tools = tools
		}

		resp, err := s.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty chat response")
		}
		result = &ChatResponse{
			Message:      resp.Choices[0].Message,
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "chat completion failed")
	}
	return result, nil
}

// Summarize condenses the given text into a short summary, no tools offered.
func (s *LLMService) Summarize(ctx context.Context, prompt string) (*ChatResponse, error) {
	return s.ChatWithTools(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}, nil)
}

