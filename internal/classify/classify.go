// Package classify derives category, summary, and sentiment for suggestion
// text. Each operation cascades across the available generation providers
// and resolves to a deterministic local fallback on exhaustion, so every
// operation is total: AI unavailability degrades quality, never blocks
// submission.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/moscooltech/suggest-ila2/internal/core"
	"github.com/moscooltech/suggest-ila2/internal/providers"
)

const (
	categorizePromptTemplate = "Categorize this suggestion into one of: %s. Respond with only the category name. Suggestion: %s"
	summarizePromptTemplate  = "Summarize this suggestion in 1-2 sentences: %s"
	sentimentPromptTemplate  = "Analyze the sentiment of this suggestion. Respond with only: Positive, Neutral, or Negative. Suggestion: %s"

	// summaryFallbackTokens is the truncation length for the local summary
	// fallback, in whitespace-delimited tokens.
	summaryFallbackTokens = 30
)

// categoryKeywords maps fallback substring matches to categories, checked in
// order with the first match winning.
var categoryKeywords = []struct {
	keywords []string
	category core.Category
}{
	{[]string{"road"}, core.CategoryRoads},
	{[]string{"power", "electric"}, core.CategoryPower},
	{[]string{"water"}, core.CategoryWater},
	{[]string{"security", "police"}, core.CategorySecurity},
	{[]string{"health", "hospital"}, core.CategoryHealth},
	{[]string{"education", "school"}, core.CategoryEducation},
}

// Classifier runs the three independent classification operations through
// the provider gateway.
type Classifier struct {
	gateway *providers.Gateway
}

// New creates a classifier over gateway.
func New(gateway *providers.Gateway) *Classifier {
	return &Classifier{gateway: gateway}
}

// Categorize assigns text one of the fixed categories. Never fails: falls
// back to keyword matching when no provider produces a valid category.
func (c *Classifier) Categorize(ctx context.Context, avail providers.Availability, text string) core.Category {
	names := make([]string, 0, len(core.Categories()))
	for _, cat := range core.Categories() {
		names = append(names, string(cat))
	}
	prompt := fmt.Sprintf(categorizePromptTemplate, strings.Join(names, ", "), text)

	value, err := c.gateway.Generate(ctx, core.OpCategorize, avail, prompt, func(raw string) (string, bool) {
		raw = strings.TrimSpace(raw)
		return raw, core.ValidCategory(raw)
	})
	if err == nil {
		return core.Category(value)
	}

	c.gateway.Fallback(ctx, core.OpCategorize)
	return fallbackCategory(text)
}

// fallbackCategory matches ordered keyword substrings, defaulting to Other.
func fallbackCategory(text string) core.Category {
	lower := strings.ToLower(text)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.category
			}
		}
	}
	return core.CategoryOther
}

// Summarize condenses text to 1-2 sentences. Falls back to truncation.
func (c *Classifier) Summarize(ctx context.Context, avail providers.Availability, text string) string {
	prompt := fmt.Sprintf(summarizePromptTemplate, text)

	value, err := c.gateway.Generate(ctx, core.OpSummarize, avail, prompt, nil)
	if err == nil {
		return value
	}

	c.gateway.Fallback(ctx, core.OpSummarize)
	return fallbackSummary(text)
}

// fallbackSummary truncates to the first 30 tokens, marking truncation with
// an ellipsis.
func fallbackSummary(text string) string {
	tokens := strings.Fields(text)
	if len(tokens) <= summaryFallbackTokens {
		return strings.Join(tokens, " ")
	}
	return strings.Join(tokens[:summaryFallbackTokens], " ") + "..."
}

// AnalyzeSentiment labels text Positive, Neutral, or Negative. Falls back to
// Neutral.
func (c *Classifier) AnalyzeSentiment(ctx context.Context, avail providers.Availability, text string) core.Sentiment {
	prompt := fmt.Sprintf(sentimentPromptTemplate, text)

	value, err := c.gateway.Generate(ctx, core.OpSentiment, avail, prompt, func(raw string) (string, bool) {
		raw = strings.TrimSpace(raw)
		return raw, core.ValidSentiment(raw)
	})
	if err == nil {
		return core.Sentiment(value)
	}

	c.gateway.Fallback(ctx, core.OpSentiment)
	return core.SentimentNeutral
}
