// Package dedup decides whether an incoming suggestion duplicates an
// existing one. A three-tier cascade bounds latency and API spend: a lexical
// pre-filter settles the obvious cases, an AI judge handles the ambiguous
// band, and embedding cosine similarity plus a strict lexical pass serve as
// fallbacks when the judge finds nothing.
package dedup

import (
	"context"
	"fmt"
	"strings"

	"github.com/moscooltech/suggest-ila2/internal/core"
	"github.com/moscooltech/suggest-ila2/internal/providers"
	"github.com/moscooltech/suggest-ila2/internal/textsim"
)

const (
	// nearIdenticalRatio: above this the texts are the same idea without
	// asking a provider.
	nearIdenticalRatio = 90
	// distinctRatio: below this the texts are clearly different ideas.
	distinctRatio = 60
	// strictRatio is the stricter lexical threshold used when all AI
	// providers fail, and by the final lexical pass of the resolver.
	strictRatio = 85
	// embeddingThreshold is the minimum cosine similarity for an embedding
	// match.
	embeddingThreshold = 0.85

	judgePromptTemplate = "Are these two suggestions expressing the same idea? Answer only 'YES' or 'NO'.\n\nSuggestion 1: %s\n\nSuggestion 2: %s"
)

// Judge answers "same idea" for a pair of texts.
type Judge struct {
	gateway *providers.Gateway
}

// NewJudge creates a judge over gateway.
func NewJudge(gateway *providers.Gateway) *Judge {
	return &Judge{gateway: gateway}
}

// SameIdea reports whether a and b express the same idea. Near-identical and
// clearly-distinct text is settled lexically with no provider call; only the
// ambiguous band goes to a provider, and provider exhaustion falls back to a
// stricter lexical threshold.
func (j *Judge) SameIdea(ctx context.Context, avail providers.Availability, a, b string) bool {
	ratio := textsim.Ratio(a, b)
	if ratio > nearIdenticalRatio {
		return true
	}
	if ratio < distinctRatio {
		return false
	}

	prompt := fmt.Sprintf(judgePromptTemplate, a, b)
	verdict, err := j.gateway.Generate(ctx, core.OpDuplicateCheck, avail, prompt, func(raw string) (string, bool) {
		answer := strings.ToUpper(strings.TrimSpace(raw))
		return answer, answer == "YES" || answer == "NO"
	})
	if err == nil {
		return verdict == "YES"
	}

	j.gateway.Fallback(ctx, core.OpDuplicateCheck)
	return ratio > strictRatio
}

// Resolver finds an existing duplicate for new suggestion text across a
// caller-supplied candidate sequence.
type Resolver struct {
	judge   *Judge
	gateway *providers.Gateway
}

// NewResolver creates a resolver using judge for the semantic pass and
// gateway for embeddings.
func NewResolver(judge *Judge, gateway *providers.Gateway) *Resolver {
	return &Resolver{judge: judge, gateway: gateway}
}

// FindDuplicate returns the first candidate that matches text, or nil.
// Candidates are visited in their given order; the semantic pass runs first
// per candidate, then a global embedding pass, then a strict lexical pass.
func (r *Resolver) FindDuplicate(ctx context.Context, avail providers.Availability, text string, candidates []core.Suggestion) *core.Suggestion {
	if len(candidates) == 0 {
		return nil
	}

	// Semantic pass: the judge is the most reliable signal, so it is tried
	// first per candidate despite being the most expensive.
	for i := range candidates {
		if r.judge.SameIdea(ctx, avail, text, candidates[i].Text) {
			return &candidates[i]
		}
	}

	// Embedding pass: one embedding for the new text, cosine against every
	// candidate that has a stored vector. Skipped entirely when the
	// embedding provider is unavailable.
	if embedding, err := r.gateway.Embed(ctx, text); err == nil {
		for i := range candidates {
			if len(candidates[i].Embedding) == 0 {
				continue
			}
			if textsim.Cosine(embedding, candidates[i].Embedding) > embeddingThreshold {
				return &candidates[i]
			}
		}
	}

	// Lexical pass: final approximation.
	for i := range candidates {
		if textsim.Ratio(text, candidates[i].Text) > strictRatio {
			return &candidates[i]
		}
	}

	return nil
}
