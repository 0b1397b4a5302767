// Package llm wraps the completion providers the creative and keyword
// producers draft copy with. Providers are interchangeable; the client
// tries the default first and falls back across the rest in a stable
// order.
package llm

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ItaloOlivier/ayonne-sub000/internal/config"
)

type Provider interface {
	Name() string
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

type Message struct {
	Role    string
	Content string
}

type CompletionResponse struct {
	Content      string
	FinishReason string
	ModelName    string
	Usage        Usage
	Latency      time.Duration
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Client struct {
	providers       map[string]Provider
	defaultProvider string
	timeout         time.Duration
}

func NewClient(cfg *config.LLMConfig) (*Client, error) {
	c := &Client{
		providers:       make(map[string]Provider),
		defaultProvider: cfg.DefaultProvider,
		timeout:         cfg.Timeout,
	}

	if cfg.OllamaBaseURL != "" {
		c.providers["ollama"] = NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel)
	}

	if cfg.OpenAIAPIKey != "" {
		c.providers["openai"] = NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	if cfg.AnthropicAPIKey != "" {
		c.providers["anthropic"] = NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	}

	if cfg.OpenRouterAPIKey != "" {
		c.providers["openrouter"] = NewOpenRouterProvider(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
	}

	if len(c.providers) == 0 {
		return nil, fmt.Errorf("no LLM providers configured")
	}

	if _, ok := c.providers[c.defaultProvider]; !ok {
		for name := range c.providers {
			c.defaultProvider = name
			break
		}
	}

	return c, nil
}

// Complete runs the request against the default provider and falls
// back across the remaining ones when it fails. Drafting copy in the
// middle of a loop run should not abort because one provider is down.
func (c *Client) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	var lastErr error

	for _, name := range c.fallbackOrder() {
		resp, err := c.CompleteWithProvider(ctx, name, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = fmt.Errorf("%s: %w", name, err)
	}

	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

// CompleteWithProvider runs the request against one named provider,
// bounded by the client timeout.
func (c *Client) CompleteWithProvider(ctx context.Context, providerName string, req *CompletionRequest) (*CompletionResponse, error) {
	provider, ok := c.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("provider %s not found", providerName)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	return provider.Complete(ctx, req)
}

// fallbackOrder lists provider names with the default first and the
// rest sorted, so retries hit providers in a deterministic order.
func (c *Client) fallbackOrder() []string {
	rest := make([]string, 0, len(c.providers))
	for name := range c.providers {
		if name != c.defaultProvider {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)

	return append([]string{c.defaultProvider}, rest...)
}
