package dedup

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/moscooltech/suggest-ila2/internal/core"
	"github.com/moscooltech/suggest-ila2/internal/metrics"
	"github.com/moscooltech/suggest-ila2/internal/providers"
)

type stubProvider struct {
	name     core.ProviderID
	response string
	err      error
	calls    int
}

func (s *stubProvider) Name() core.ProviderID { return s.name }

func (s *stubProvider) Complete(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type stubEmbedder struct {
	vector []float64
	err    error
	calls  int
}

func (s *stubEmbedder) Name() core.ProviderID { return core.ProviderGemini }

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func newResolver(embedder providers.Embedder, provs ...providers.Provider) (*Resolver, *Judge, *metrics.MemoryRecorder) {
	rec := metrics.NewMemoryRecorder()
	gw := providers.NewGateway(provs, embedder, rec, rand.New(rand.NewSource(3)))
	judge := NewJudge(gw)
	return NewResolver(judge, gw), judge, rec
}

func allUp() providers.Availability {
	return providers.AllUp(core.ProviderGroq, core.ProviderOpenRouter, core.ProviderGemini)
}

func TestSameIdeaNearIdenticalSkipsProviders(t *testing.T) {
	groq := &stubProvider{name: core.ProviderGroq, response: "NO"}
	_, judge, rec := newResolver(nil, groq)

	// Identical text: ratio 100 > 90.
	if !judge.SameIdea(context.Background(), allUp(), "fix the pothole on main road", "fix the pothole on main road") {
		t.Error("near-identical text must be judged the same idea")
	}
	if groq.calls != 0 {
		t.Errorf("no provider call expected, got %d", groq.calls)
	}
	if len(rec.Records()) != 0 {
		t.Errorf("no records expected for lexical short-circuit, got %d", len(rec.Records()))
	}
}

func TestSameIdeaClearlyDistinctSkipsProviders(t *testing.T) {
	groq := &stubProvider{name: core.ProviderGroq, response: "YES"}
	_, judge, _ := newResolver(nil, groq)

	if judge.SameIdea(context.Background(), allUp(), "aaaaaaaaaaaaaaaaaaaa", "zzzzzzzzzzzzzzzzzzzz") {
		t.Error("clearly distinct text must not be judged the same idea")
	}
	if groq.calls != 0 {
		t.Errorf("no provider call expected, got %d", groq.calls)
	}
}

// ambiguousPair returns two texts whose lexical ratio lands in the 60-90
// band, forcing the AI judgment path.
func ambiguousPair() (string, string) {
	return "please repair the streetlights on oak avenue near the park",
		"please repair the streetlights on elm street near the school"
}

func TestSameIdeaAmbiguousBandUsesProvider(t *testing.T) {
	a, b := ambiguousPair()
	groq := &stubProvider{name: core.ProviderGroq, response: "YES"}
	_, judge, rec := newResolver(nil, groq)

	if !judge.SameIdea(context.Background(), allUp(), a, b) {
		t.Error("expected YES verdict to be honored")
	}
	if groq.calls != 1 {
		t.Errorf("expected exactly one provider call, got %d", groq.calls)
	}
	records := rec.Records()
	if len(records) != 1 || records[0].Operation != core.OpDuplicateCheck {
		t.Errorf("expected one duplicate_check record, got %+v", records)
	}
}

func TestSameIdeaNoVerdict(t *testing.T) {
	a, b := ambiguousPair()
	groq := &stubProvider{name: core.ProviderGroq, response: "NO"}
	_, judge, _ := newResolver(nil, groq)

	if judge.SameIdea(context.Background(), allUp(), a, b) {
		t.Error("expected NO verdict to be honored")
	}
}

func TestSameIdeaExhaustionUsesStricterRatio(t *testing.T) {
	a, b := ambiguousPair()
	down := &stubProvider{name: core.ProviderGroq, err: errors.New("down")}
	_, judge, rec := newResolver(nil, down)

	// Ratio is in (60, 85] here, so the strict fallback says not duplicates.
	if judge.SameIdea(context.Background(), allUp(), a, b) {
		t.Error("strict-ratio fallback should reject this pair")
	}

	var fallbacks int
	for _, r := range rec.Records() {
		if r.Provider == core.ProviderFallback {
			fallbacks++
		}
	}
	if fallbacks != 1 {
		t.Errorf("expected one fallback record, got %d", fallbacks)
	}
}

func TestFindDuplicateEmptyCandidates(t *testing.T) {
	r, _, _ := newResolver(nil)

	if got := r.FindDuplicate(context.Background(), allUp(), "any text at all", nil); got != nil {
		t.Errorf("expected nil for empty candidates, got %+v", got)
	}
}

func TestFindDuplicateSemanticPassShortCircuits(t *testing.T) {
	embedder := &stubEmbedder{vector: []float64{1, 0}}
	r, _, _ := newResolver(embedder)

	// Near-identical text matches in the semantic pass lexical short-circuit
	// with zero embedding calls.
	candidate := core.Suggestion{ID: "s1", Text: "There is a big pothole on Main Road today"}
	got := r.FindDuplicate(context.Background(), allUp(), "There is a big pothole on Main Road toda", []core.Suggestion{candidate})
	if got == nil || got.ID != "s1" {
		t.Fatalf("expected candidate s1, got %+v", got)
	}
	if embedder.calls != 0 {
		t.Errorf("semantic match must make zero embedding calls, got %d", embedder.calls)
	}
}

func TestFindDuplicateFirstMatchWinsInOrder(t *testing.T) {
	r, _, _ := newResolver(nil)

	first := core.Suggestion{ID: "first", Text: "fix potholes on main road please"}
	second := core.Suggestion{ID: "second", Text: "fix potholes on main road pleas"}
	newText := "fix potholes on main road please"

	got := r.FindDuplicate(context.Background(), allUp(), newText, []core.Suggestion{first, second})
	if got == nil || got.ID != "first" {
		t.Fatalf("expected first candidate in order, got %+v", got)
	}

	// Reversed order returns the other candidate: both match, order decides.
	got = r.FindDuplicate(context.Background(), allUp(), newText, []core.Suggestion{second, first})
	if got == nil || got.ID != "second" {
		t.Fatalf("expected second candidate when reordered, got %+v", got)
	}
}

func TestFindDuplicateEmbeddingPass(t *testing.T) {
	// Candidate is lexically and semantically unrelated but its stored
	// embedding has cosine ~0.9 against the new text's embedding.
	embedder := &stubEmbedder{vector: []float64{1, 0}}
	no := &stubProvider{name: core.ProviderGroq, response: "NO"}
	r, _, _ := newResolver(embedder, no)

	candidate := core.Suggestion{
		ID:        "emb",
		Text:      "zzzz completely unrelated wording zzzz",
		Embedding: []float64{0.9, 0.436},
	}

	got := r.FindDuplicate(context.Background(), allUp(), "please resurface our street", []core.Suggestion{candidate})
	if got == nil || got.ID != "emb" {
		t.Fatalf("expected embedding-pass match, got %+v", got)
	}
	if embedder.calls != 1 {
		t.Errorf("embedding computed once per resolution, got %d calls", embedder.calls)
	}
}

func TestFindDuplicateEmbeddingUnavailableSkipsTier(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("quota")}
	r, _, _ := newResolver(embedder)

	candidate := core.Suggestion{
		ID:        "emb",
		Text:      "zzzz completely unrelated wording zzzz",
		Embedding: []float64{1, 0},
	}

	if got := r.FindDuplicate(context.Background(), allUp(), "please resurface our street", []core.Suggestion{candidate}); got != nil {
		t.Errorf("embedding tier must be skipped when unavailable, got %+v", got)
	}
}

func TestFindDuplicateCandidateWithoutEmbeddingSkipped(t *testing.T) {
	embedder := &stubEmbedder{vector: []float64{1, 0}}
	r, _, _ := newResolver(embedder)

	candidate := core.Suggestion{ID: "no-vec", Text: "zzzz unrelated zzzz qqqq"}
	if got := r.FindDuplicate(context.Background(), allUp(), "please resurface our street", []core.Suggestion{candidate}); got != nil {
		t.Errorf("candidate without stored embedding cannot match the embedding tier, got %+v", got)
	}
}

func TestFindDuplicateNoMatchAnywhere(t *testing.T) {
	r, _, _ := newResolver(nil)

	candidates := []core.Suggestion{
		{ID: "a", Text: "zzzzzz totally different zzzzzz"},
		{ID: "b", Text: "qqqqqq also different qqqqqq"},
	}
	if got := r.FindDuplicate(context.Background(), allUp(), "new unique suggestion about parks", candidates); got != nil {
		t.Errorf("expected no duplicate, got %+v", got)
	}
}
