package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ItaloOlivier/ayonne-sub000/internal/config"
)

type scriptedProvider struct {
	name  string
	err   error
	calls int
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &CompletionResponse{Content: "from " + p.name, ModelName: p.name}, nil
}

func newTestClient(def string, providers ...*scriptedProvider) *Client {
	c := &Client{providers: make(map[string]Provider), defaultProvider: def}
	for _, p := range providers {
		c.providers[p.name] = p
	}
	return c
}

func TestCompletePrefersDefaultProvider(t *testing.T) {
	def := &scriptedProvider{name: "openai"}
	other := &scriptedProvider{name: "anthropic"}
	c := newTestClient("openai", def, other)

	resp, err := c.Complete(context.Background(), &CompletionRequest{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Content != "from openai" {
		t.Errorf("content = %q, want the default provider's answer", resp.Content)
	}
	if other.calls != 0 {
		t.Errorf("fallback provider called %d times, want 0", other.calls)
	}
}

func TestCompleteFallsBackInStableOrder(t *testing.T) {
	def := &scriptedProvider{name: "openai", err: errors.New("quota exhausted")}
	a := &scriptedProvider{name: "anthropic", err: errors.New("down")}
	b := &scriptedProvider{name: "ollama"}
	c := newTestClient("openai", def, a, b)

	resp, err := c.Complete(context.Background(), &CompletionRequest{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Content != "from ollama" {
		t.Errorf("content = %q, want the surviving provider's answer", resp.Content)
	}
	if def.calls != 1 || a.calls != 1 || b.calls != 1 {
		t.Errorf("calls = %d/%d/%d, want each provider tried once", def.calls, a.calls, b.calls)
	}
}

func TestCompleteReportsAllFailures(t *testing.T) {
	def := &scriptedProvider{name: "openai", err: errors.New("quota exhausted")}
	other := &scriptedProvider{name: "ollama", err: errors.New("connection refused")}
	c := newTestClient("openai", def, other)

	_, err := c.Complete(context.Background(), &CompletionRequest{})
	if err == nil {
		t.Fatal("want an error when every provider fails")
	}
	if !strings.Contains(err.Error(), "all providers failed") {
		t.Errorf("error = %v, want it to name the total failure", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error = %v, want the last provider error wrapped", err)
	}
}

func TestCompleteStopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	def := &scriptedProvider{name: "openai", err: errors.New("boom")}
	other := &scriptedProvider{name: "ollama"}
	c := newTestClient("openai", def, other)

	_, err := c.Complete(ctx, &CompletionRequest{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if other.calls != 0 {
		t.Errorf("fallback ran %d times after cancellation, want 0", other.calls)
	}
}

func TestFallbackOrderIsDeterministic(t *testing.T) {
	c := newTestClient("ollama",
		&scriptedProvider{name: "openrouter"},
		&scriptedProvider{name: "anthropic"},
		&scriptedProvider{name: "ollama"},
		&scriptedProvider{name: "openai"},
	)

	want := []string{"ollama", "anthropic", "openai", "openrouter"}
	for i := 0; i < 20; i++ {
		got := c.fallbackOrder()
		if len(got) != len(want) {
			t.Fatalf("order %v, want %v", got, want)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("order %v, want %v", got, want)
			}
		}
	}
}

func TestCompleteWithProviderUnknownName(t *testing.T) {
	c := newTestClient("openai", &scriptedProvider{name: "openai"})

	_, err := c.CompleteWithProvider(context.Background(), "bedrock", &CompletionRequest{})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v, want a not-found error", err)
	}
}

func TestNewClientRequiresAProvider(t *testing.T) {
	_, err := NewClient(&config.LLMConfig{DefaultProvider: "openai"})
	if err == nil {
		t.Fatal("want an error when no provider is configured")
	}
}

func TestNewClientRepairsUnknownDefault(t *testing.T) {
	c, err := NewClient(&config.LLMConfig{
		DefaultProvider: "anthropic",
		OllamaBaseURL:   "http://localhost:11434",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.defaultProvider != "ollama" {
		t.Errorf("default = %q, want repaired to the only configured provider", c.defaultProvider)
	}
}

func TestBuildChatRequestDefaults(t *testing.T) {
	req := buildChatRequest("gpt-4o-mini", &CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
		JSONMode: true,
	})

	if req.MaxTokens != 2048 {
		t.Errorf("max tokens = %d, want the 2048 default", req.MaxTokens)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Error("JSON mode must set the JSON response format")
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "hi" {
		t.Errorf("messages = %+v, want the user message carried over", req.Messages)
	}
}

func TestIsRateLimited(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("status 429: slow down"), true},
		{errors.New("rate limit exceeded"), true},
		{errors.New("Too Many Requests"), true},
		{errors.New("connection refused"), false},
	}

	for _, tc := range cases {
		if got := isRateLimited(tc.err); got != tc.want {
			t.Errorf("isRateLimited(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
