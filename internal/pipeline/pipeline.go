// Package pipeline ties duplicate resolution and classification together for
// one suggestion submission or edit. Each run is request-scoped; concurrent
// runs share nothing but the append-only metrics log.
package pipeline

import (
	"context"

	"github.com/moscooltech/suggest-ila2/internal/classify"
	"github.com/moscooltech/suggest-ila2/internal/core"
	"github.com/moscooltech/suggest-ila2/internal/dedup"
	"github.com/moscooltech/suggest-ila2/internal/providers"
)

// Result is the outcome of processing one suggestion text. When Duplicate is
// set the classification fields are zero: the text never became a new
// suggestion.
type Result struct {
	Duplicate *core.Suggestion
	Category  core.Category
	Summary   string
	Sentiment core.Sentiment
	Embedding []float64
}

// Pipeline runs the submission flow: resolve duplicates, then classify.
type Pipeline struct {
	resolver   *dedup.Resolver
	classifier *classify.Classifier
	gateway    *providers.Gateway
}

// New creates a pipeline.
func New(resolver *dedup.Resolver, classifier *classify.Classifier, gateway *providers.Gateway) *Pipeline {
	return &Pipeline{resolver: resolver, classifier: classifier, gateway: gateway}
}

// Process resolves text against candidates and, when no duplicate is found,
// derives category, summary, sentiment, and a best-effort embedding for
// future duplicate checks. Process is total: it always returns a usable
// result, never an error.
func (p *Pipeline) Process(ctx context.Context, avail providers.Availability, text string, candidates []core.Suggestion) Result {
	if dup := p.resolver.FindDuplicate(ctx, avail, text, candidates); dup != nil {
		return Result{Duplicate: dup}
	}

	result := Result{
		Category:  p.classifier.Categorize(ctx, avail, text),
		Summary:   p.classifier.Summarize(ctx, avail, text),
		Sentiment: p.classifier.AnalyzeSentiment(ctx, avail, text),
	}

	// Embedding failures leave the suggestion without a vector; later
	// duplicate checks fall back to the other tiers for it.
	if embedding, err := p.gateway.Embed(ctx, text); err == nil {
		result.Embedding = embedding
	}

	return result
}

// Reclassify re-derives category, summary, and sentiment for edited text
// without re-running duplicate resolution.
func (p *Pipeline) Reclassify(ctx context.Context, avail providers.Availability, text string) Result {
	result := Result{
		Category:  p.classifier.Categorize(ctx, avail, text),
		Summary:   p.classifier.Summarize(ctx, avail, text),
		Sentiment: p.classifier.AnalyzeSentiment(ctx, avail, text),
	}
	if embedding, err := p.gateway.Embed(ctx, text); err == nil {
		result.Embedding = embedding
	}
	return result
}
