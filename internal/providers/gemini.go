package providers

import (
	"context"
	"fmt"

	"github.com/moscooltech/suggest-ila2/internal/config"
	"github.com/moscooltech/suggest-ila2/internal/core"
	"google.golang.org/genai"
)

// GeminiEmbedder is the sole embedding provider. Generation traffic never
// goes to Gemini; it is reserved for embeddings.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int32
}

// NewGeminiEmbedder creates the embedding client. Returns an error when no
// API key is configured; callers treat a nil embedder as "embedding
// unavailable".
func NewGeminiEmbedder(ctx context.Context, cfg config.GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEmbedder{
		client:     client,
		model:      cfg.EmbeddingModel,
		dimensions: cfg.EmbeddingDimensions,
	}, nil
}

// Name returns the provider identity used in metrics.
func (g *GeminiEmbedder) Name() core.ProviderID {
	return core.ProviderGemini
}

// Embed generates an embedding vector for text.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: text}},
		Role:  "user",
	}}

	dims := g.dimensions
	cfg := &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("no embedding values returned from API")
	}

	values := resp.Embeddings[0].Values
	embedding := make([]float64, len(values))
	for i, val := range values {
		embedding[i] = float64(val)
	}

	return embedding, nil
}
