// Package providers implements the AI provider gateway: a uniform call
// surface over the interchangeable text-generation providers and the fixed
// embedding provider, with per-attempt metrics recording.
package providers

import (
	"context"

	"github.com/moscooltech/suggest-ila2/internal/core"
)

// Provider is one text-generation backend.
type Provider interface {
	Name() core.ProviderID
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder produces fixed-dimension embedding vectors. Exactly one provider
// (Gemini) serves embeddings; it has no fallback partner.
type Embedder interface {
	Name() core.ProviderID
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Availability is a point-in-time snapshot of provider liveness, produced by
// the probe and passed explicitly into every gateway call.
type Availability map[core.ProviderID]bool

// Available reports whether id was live when the snapshot was taken.
func (a Availability) Available(id core.ProviderID) bool {
	return a[id]
}

// AllUp returns a snapshot marking every given provider as live. Useful in
// tests and as a permissive default.
func AllUp(ids ...core.ProviderID) Availability {
	a := make(Availability, len(ids))
	for _, id := range ids {
		a[id] = true
	}
	return a
}
