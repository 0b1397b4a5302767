package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// openRouterRetries bounds the backoff loop on rate-limited requests.
const openRouterRetries = 3

// OpenRouterProvider routes completions through OpenRouter's
// OpenAI-compatible API.
type OpenRouterProvider struct {
	client *openai.Client
	model  string
}

func NewOpenRouterProvider(apiKey, model string) *OpenRouterProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = "https://openrouter.ai/api/v1"

	if model == "" {
		model = "meta-llama/llama-3.1-70b-instruct"
	}
	return &OpenRouterProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenRouterProvider) Name() string {
	return "openrouter"
}

func (p *OpenRouterProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = p.model
	}

	chatReq := buildChatRequest(model, req)

	// OpenRouter rate-limits shared model pools aggressively; back off
	// and retry before giving up.
	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 0; attempt <= openRouterRetries; attempt++ {
		resp, err = p.client.CreateChatCompletion(ctx, chatReq)
		if err == nil {
			break
		}
		if attempt == openRouterRetries || !isRateLimited(err) {
			return nil, fmt.Errorf("create completion: %w", err)
		}
		select {
		case <-time.After(time.Duration(1<<uint(attempt)) * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return chatCompletionResult(model, start, resp)
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "Too Many Requests")
}
