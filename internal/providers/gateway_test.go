package providers

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/moscooltech/suggest-ila2/internal/core"
	"github.com/moscooltech/suggest-ila2/internal/metrics"
)

// fakeProvider implements Provider with canned behavior.
type fakeProvider struct {
	name     core.ProviderID
	response string
	err      error
	calls    int
}

func (f *fakeProvider) Name() core.ProviderID { return f.name }

func (f *fakeProvider) Complete(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeEmbedder struct {
	vector []float64
	err    error
	calls  int
}

func (f *fakeEmbedder) Name() core.ProviderID { return core.ProviderGemini }

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func newTestGateway(generators []Provider, embedder Embedder) (*Gateway, *metrics.MemoryRecorder) {
	rec := metrics.NewMemoryRecorder()
	gw := NewGateway(generators, embedder, rec, rand.New(rand.NewSource(1)))
	return gw, rec
}

func TestGenerateFirstProviderSucceeds(t *testing.T) {
	groq := &fakeProvider{name: core.ProviderGroq, response: "Roads"}
	gw, rec := newTestGateway([]Provider{groq}, nil)

	got, err := gw.Generate(context.Background(), core.OpCategorize, AllUp(core.ProviderGroq), "prompt", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Roads" {
		t.Errorf("expected Roads, got %q", got)
	}

	records := rec.Records()
	if len(records) != 1 {
		t.Fatalf("expected exactly 1 record, got %d", len(records))
	}
	if !records[0].Success || records[0].Provider != core.ProviderGroq {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestGenerateAdvancesPastTransportFailure(t *testing.T) {
	down := &fakeProvider{name: core.ProviderGroq, err: errors.New("connection refused")}
	up := &fakeProvider{name: core.ProviderOpenRouter, response: "Water"}
	gw, rec := newTestGateway([]Provider{down, up}, nil)

	got, err := gw.Generate(context.Background(), core.OpCategorize,
		AllUp(core.ProviderGroq, core.ProviderOpenRouter), "prompt", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Water" {
		t.Errorf("expected Water, got %q", got)
	}

	records := rec.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records (failure + success), got %d", len(records))
	}
	var failures, successes int
	for _, r := range records {
		if r.Success {
			successes++
		} else {
			failures++
		}
	}
	if failures != 1 || successes != 1 {
		t.Errorf("expected 1 failure and 1 success, got %d/%d", failures, successes)
	}
}

func TestGenerateInvalidShapeRecordedDistinctly(t *testing.T) {
	chatty := &fakeProvider{name: core.ProviderGroq, response: "I think the category is Roads!"}
	gw, rec := newTestGateway([]Provider{chatty}, nil)

	validate := func(raw string) (string, bool) {
		if core.ValidCategory(raw) {
			return raw, true
		}
		return "", false
	}

	_, err := gw.Generate(context.Background(), core.OpCategorize, AllUp(core.ProviderGroq), "prompt", validate)
	if !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}

	records := rec.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Success {
		t.Error("invalid-shape response must be recorded as failure")
	}
	if !strings.HasPrefix(records[0].ErrorMessage, "invalid response:") {
		t.Errorf("invalid-shape failure should be distinguishable, got %q", records[0].ErrorMessage)
	}
}

func TestInvalidShapeMessageTruncatesOnRuneBoundary(t *testing.T) {
	// A long response full of multibyte runes must not be cut mid-rune
	// when embedded in the error message.
	chatty := &fakeProvider{name: core.ProviderGroq, response: strings.Repeat("路", 200)}
	gw, rec := newTestGateway([]Provider{chatty}, nil)

	validate := func(string) (string, bool) { return "", false }
	_, err := gw.Generate(context.Background(), core.OpCategorize, AllUp(core.ProviderGroq), "prompt", validate)
	if !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}

	records := rec.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	msg := records[0].ErrorMessage
	if !utf8.ValidString(msg) {
		t.Errorf("error message contains invalid UTF-8: %q", msg)
	}
	if !strings.HasSuffix(msg, "...") {
		t.Errorf("truncated message should end with ellipsis, got %q", msg)
	}
	if got := utf8.RuneCountInString(strings.TrimSuffix(msg, "...")); got > len("invalid response: ")+120 {
		t.Errorf("message not truncated, %d runes", got)
	}
}

func TestGenerateSkipsUnavailableProviders(t *testing.T) {
	groq := &fakeProvider{name: core.ProviderGroq, response: "never called"}
	openrouter := &fakeProvider{name: core.ProviderOpenRouter, response: "Positive"}
	gw, _ := newTestGateway([]Provider{groq, openrouter}, nil)

	avail := Availability{core.ProviderGroq: false, core.ProviderOpenRouter: true}
	got, err := gw.Generate(context.Background(), core.OpSentiment, avail, "prompt", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Positive" {
		t.Errorf("expected Positive, got %q", got)
	}
	if groq.calls != 0 {
		t.Errorf("unavailable provider must not be called, got %d calls", groq.calls)
	}
}

func TestGenerateExhaustionReturnsErrNoProvider(t *testing.T) {
	gw, rec := newTestGateway(nil, nil)

	_, err := gw.Generate(context.Background(), core.OpSummarize, Availability{}, "prompt", nil)
	if !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
	if len(rec.Records()) != 0 {
		t.Errorf("no attempts should be recorded when no provider is available")
	}
}

func TestFallbackRecordedUnderPseudoProvider(t *testing.T) {
	gw, rec := newTestGateway(nil, nil)

	gw.Fallback(context.Background(), core.OpCategorize)

	records := rec.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.Provider != core.ProviderFallback || !r.Success || r.ResponseTime != 0 {
		t.Errorf("fallback record must be success with zero latency under the fallback provider, got %+v", r)
	}
}

func TestEmbedWithoutEmbedder(t *testing.T) {
	gw, rec := newTestGateway(nil, nil)

	_, err := gw.Embed(context.Background(), "text")
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	if len(rec.Records()) != 0 {
		t.Errorf("unconfigured embedder should not produce records")
	}
}

func TestEmbedFailureRecorded(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("quota exceeded")}
	gw, rec := newTestGateway(nil, emb)

	_, err := gw.Embed(context.Background(), "text")
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}

	records := rec.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Success || records[0].Operation != core.OpEmbedding || records[0].Provider != core.ProviderGemini {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestEmbedSuccess(t *testing.T) {
	emb := &fakeEmbedder{vector: []float64{0.1, 0.2}}
	gw, rec := newTestGateway(nil, emb)

	vec, err := gw.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("expected 2-dim vector, got %d", len(vec))
	}
	if len(rec.Records()) != 1 || !rec.Records()[0].Success {
		t.Errorf("expected exactly one success record")
	}
}

func TestShuffleIsDeterministicWithPinnedSource(t *testing.T) {
	order := func(seed int64) []core.ProviderID {
		a := &fakeProvider{name: core.ProviderGroq, err: errors.New("down")}
		b := &fakeProvider{name: core.ProviderOpenRouter, err: errors.New("down")}
		rec := metrics.NewMemoryRecorder()
		gw := NewGateway([]Provider{a, b}, nil, rec, rand.New(rand.NewSource(seed)))
		_, _ = gw.Generate(context.Background(), core.OpCategorize,
			AllUp(core.ProviderGroq, core.ProviderOpenRouter), "p", nil)
		var ids []core.ProviderID
		for _, r := range rec.Records() {
			ids = append(ids, r.Provider)
		}
		return ids
	}

	first := order(42)
	second := order(42)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected both providers attempted")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("same seed must give same attempt order: %v vs %v", first, second)
		}
	}
}
