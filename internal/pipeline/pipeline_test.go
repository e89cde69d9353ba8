package pipeline

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/moscooltech/suggest-ila2/internal/classify"
	"github.com/moscooltech/suggest-ila2/internal/core"
	"github.com/moscooltech/suggest-ila2/internal/dedup"
	"github.com/moscooltech/suggest-ila2/internal/metrics"
	"github.com/moscooltech/suggest-ila2/internal/providers"
)

type stubProvider struct {
	name core.ProviderID
	err  error
}

func (s *stubProvider) Name() core.ProviderID { return s.name }

func (s *stubProvider) Complete(_ context.Context, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "", errors.New("unexpected call")
}

type stubEmbedder struct {
	vector []float64
	err    error
}

func (s *stubEmbedder) Name() core.ProviderID { return core.ProviderGemini }

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func newPipeline(embedder providers.Embedder, provs ...providers.Provider) (*Pipeline, *metrics.MemoryRecorder) {
	rec := metrics.NewMemoryRecorder()
	gw := providers.NewGateway(provs, embedder, rec, rand.New(rand.NewSource(11)))
	judge := dedup.NewJudge(gw)
	return New(dedup.NewResolver(judge, gw), classify.New(gw), gw), rec
}

func TestProcessAllProvidersDownEndToEnd(t *testing.T) {
	// Fully degraded: no providers, empty candidates, pothole text.
	p, _ := newPipeline(nil)

	result := p.Process(context.Background(), providers.Availability{},
		"There is a big pothole on Main Road", nil)

	if result.Duplicate != nil {
		t.Errorf("expected no duplicate with empty candidates, got %+v", result.Duplicate)
	}
	if result.Category != core.CategoryRoads {
		t.Errorf("expected Roads from keyword fallback, got %s", result.Category)
	}
	if result.Sentiment != core.SentimentNeutral {
		t.Errorf("expected Neutral fallback, got %s", result.Sentiment)
	}
	if result.Summary == "" {
		t.Error("summary fallback must still produce text")
	}
	if result.Embedding != nil {
		t.Error("no embedder configured, embedding must be empty")
	}
}

func TestProcessDuplicateShortCircuitsClassification(t *testing.T) {
	p, rec := newPipeline(nil)

	candidate := core.Suggestion{ID: "dup", Text: "there is a big pothole on main road"}
	result := p.Process(context.Background(), providers.Availability{},
		"There is a big pothole on main road", []core.Suggestion{candidate})

	if result.Duplicate == nil || result.Duplicate.ID != "dup" {
		t.Fatalf("expected duplicate, got %+v", result.Duplicate)
	}
	if result.Category != "" || result.Summary != "" || result.Sentiment != "" {
		t.Error("classification must not run for duplicates")
	}
	// Lexical short-circuit duplicate detection: no AI operations at all.
	if n := len(rec.Records()); n != 0 {
		t.Errorf("expected no operation records, got %d", n)
	}
}

func TestProcessStoresEmbeddingForNewSuggestion(t *testing.T) {
	p, _ := newPipeline(&stubEmbedder{vector: []float64{0.3, 0.4}})

	result := p.Process(context.Background(), providers.Availability{}, "new idea about parks", nil)
	if len(result.Embedding) != 2 {
		t.Errorf("expected embedding on new suggestion, got %v", result.Embedding)
	}
}

func TestProcessEmbeddingFailureIsNonFatal(t *testing.T) {
	p, _ := newPipeline(&stubEmbedder{err: errors.New("quota")})

	result := p.Process(context.Background(), providers.Availability{}, "new idea about parks", nil)
	if result.Embedding != nil {
		t.Errorf("expected no embedding, got %v", result.Embedding)
	}
	if result.Category == "" {
		t.Error("classification must still complete")
	}
}

func TestReclassifyDoesNotResolveDuplicates(t *testing.T) {
	p, _ := newPipeline(nil)

	result := p.Reclassify(context.Background(), providers.Availability{}, "the school needs new desks")
	if result.Duplicate != nil {
		t.Error("reclassify never reports duplicates")
	}
	if result.Category != core.CategoryEducation {
		t.Errorf("expected Education from keyword fallback, got %s", result.Category)
	}
}
