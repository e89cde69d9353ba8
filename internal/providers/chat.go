package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/moscooltech/suggest-ila2/internal/config"
	"github.com/moscooltech/suggest-ila2/internal/core"
)

// ChatProvider calls an OpenAI-compatible chat-completions endpoint. Groq
// and OpenRouter expose the same wire shape, so both are instances of this
// type with different names, base URLs, and models.
type ChatProvider struct {
	name    core.ProviderID
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewGroq creates the Groq generation provider.
func NewGroq(cfg config.GroqConfig, timeout time.Duration) *ChatProvider {
	return &ChatProvider{
		name:    core.ProviderGroq,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// NewOpenRouter creates the OpenRouter generation provider.
func NewOpenRouter(cfg config.OpenRouterConfig, timeout time.Duration) *ChatProvider {
	return &ChatProvider{
		name:    core.ProviderOpenRouter,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider identity used in metrics.
func (p *ChatProvider) Name() core.ProviderID {
	return p.name
}

// Configured reports whether an API key is present.
func (p *ChatProvider) Configured() bool {
	return p.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message and returns the trimmed
// completion text.
func (p *ChatProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return p.complete(ctx, prompt, 0)
}

// CompleteMinimal issues the cheapest possible call, used by the liveness
// probe.
func (p *ChatProvider) CompleteMinimal(ctx context.Context, prompt string) (string, error) {
	return p.complete(ctx, prompt, 1)
}

func (p *ChatProvider) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("%s: API key not configured", p.name)
	}

	body, err := json.Marshal(chatRequest{
		Model:     p.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s: failed to encode request: %w", p.name, err)
	}

	url := strings.TrimRight(p.baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: failed to build request: %w", p.name, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little of the body for the error message
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("%s: HTTP %d: %s", p.name, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%s: failed to decode response: %w", p.name, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s: empty response from model", p.name)
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
