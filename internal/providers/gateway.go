package providers

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/moscooltech/suggest-ila2/internal/core"
	"github.com/moscooltech/suggest-ila2/internal/metrics"
)

// ErrNoProvider is returned by Generate when every available provider failed
// or returned an invalid-shaped response. Callers supply their own
// deterministic fallback and report it through Fallback.
var ErrNoProvider = errors.New("no provider succeeded")

// ErrEmbeddingUnavailable is returned by Embed when no embedding provider is
// configured or the call failed. There is no fallback for embeddings.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// ValidateFunc checks that a raw completion has the expected output shape
// and returns the normalized value. A false return is an invalid-shape
// failure, recorded distinctly from transport errors.
type ValidateFunc func(raw string) (string, bool)

// Gateway dispatches generation calls across a randomized ordering of the
// available providers and embedding calls to the fixed embedding provider.
// Every attempt emits exactly one OperationRecord.
type Gateway struct {
	generators []Provider
	embedder   Embedder // nil when embeddings are not configured
	recorder   metrics.Recorder

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGateway creates a gateway. rng controls shuffle order; pass a seeded
// source in tests to pin the ordering.
func NewGateway(generators []Provider, embedder Embedder, recorder metrics.Recorder, rng *rand.Rand) *Gateway {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Gateway{
		generators: generators,
		embedder:   embedder,
		recorder:   recorder,
		rng:        rng,
	}
}

// Generate tries each available provider in shuffled order until one returns
// a response that passes validate. It returns ErrNoProvider when the
// provider set is exhausted.
func (g *Gateway) Generate(ctx context.Context, kind core.OperationKind, avail Availability, prompt string, validate ValidateFunc) (string, error) {
	if validate == nil {
		validate = func(raw string) (string, bool) { return raw, raw != "" }
	}

	for _, provider := range g.shuffledAvailable(avail) {
		start := time.Now()
		raw, err := provider.Complete(ctx, prompt)
		elapsed := time.Since(start)

		if err != nil {
			g.record(ctx, kind, provider.Name(), false, elapsed, err.Error())
			continue
		}

		value, ok := validate(raw)
		if !ok {
			g.record(ctx, kind, provider.Name(), false, elapsed, "invalid response: "+truncate(raw, 120))
			continue
		}

		g.record(ctx, kind, provider.Name(), true, elapsed, "")
		return value, nil
	}

	return "", ErrNoProvider
}

// Embed generates an embedding for text via the fixed embedding provider.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float64, error) {
	if g.embedder == nil {
		return nil, ErrEmbeddingUnavailable
	}

	start := time.Now()
	vector, err := g.embedder.Embed(ctx, text)
	elapsed := time.Since(start)

	if err != nil {
		g.record(ctx, core.OpEmbedding, g.embedder.Name(), false, elapsed, err.Error())
		return nil, ErrEmbeddingUnavailable
	}

	g.record(ctx, core.OpEmbedding, g.embedder.Name(), true, elapsed, "")
	return vector, nil
}

// Fallback records that the caller resolved kind through its local
// deterministic fallback after provider exhaustion.
func (g *Gateway) Fallback(ctx context.Context, kind core.OperationKind) {
	g.record(ctx, kind, core.ProviderFallback, true, 0, "")
}

// shuffledAvailable returns a shuffled copy of the generation providers that
// are live in the availability snapshot. Randomization load-balances across
// healthy providers.
func (g *Gateway) shuffledAvailable(avail Availability) []Provider {
	candidates := make([]Provider, 0, len(g.generators))
	for _, p := range g.generators {
		if avail.Available(p.Name()) {
			candidates = append(candidates, p)
		}
	}

	g.mu.Lock()
	g.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	g.mu.Unlock()

	return candidates
}

func (g *Gateway) record(ctx context.Context, kind core.OperationKind, provider core.ProviderID, success bool, elapsed time.Duration, errMsg string) {
	g.recorder.Record(ctx, core.OperationRecord{
		ID:           uuid.NewString(),
		Operation:    kind,
		Provider:     provider,
		Success:      success,
		ResponseTime: elapsed,
		ErrorMessage: errMsg,
		CreatedAt:    time.Now().UTC(),
	})
}

// truncate shortens s to at most n runes, never splitting a multibyte rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
