package providers

import (
	"context"
	"sync"

	"github.com/moscooltech/suggest-ila2/internal/core"
	"github.com/moscooltech/suggest-ila2/internal/logger"
)

// ProbeTarget is a generation provider the probe can health-check with a
// minimal one-token call.
type ProbeTarget interface {
	Name() core.ProviderID
	Configured() bool
	CompleteMinimal(ctx context.Context, prompt string) (string, error)
}

// Probe checks generation-provider liveness with cheap test calls and
// produces Availability snapshots for the gateway. Snapshots are refreshed
// by the caller at a controlled cadence; the gateway itself never probes.
type Probe struct {
	targets     []ProbeTarget
	embedderSet bool

	mu         sync.RWMutex
	current    Availability
	lastErrors map[core.ProviderID]string
}

// NewProbe creates a probe over targets. embedderSet marks whether the
// embedding provider is configured; it is reported without a test call since
// embedding failures already degrade gracefully per call.
func NewProbe(targets []ProbeTarget, embedderSet bool) *Probe {
	return &Probe{
		targets:     targets,
		embedderSet: embedderSet,
		current:     Availability{},
		lastErrors:  map[core.ProviderID]string{},
	}
}

// Refresh re-checks every target and stores the new snapshot.
func (p *Probe) Refresh(ctx context.Context) Availability {
	avail := Availability{core.ProviderGemini: p.embedderSet}
	errs := map[core.ProviderID]string{}

	for _, target := range p.targets {
		if !target.Configured() {
			avail[target.Name()] = false
			errs[target.Name()] = "API key not configured"
			continue
		}

		if _, err := target.CompleteMinimal(ctx, "test"); err != nil {
			avail[target.Name()] = false
			errs[target.Name()] = err.Error()
			logger.Debug("provider probe failed", "provider", target.Name(), "error", err.Error())
			continue
		}
		avail[target.Name()] = true
	}

	p.mu.Lock()
	p.current = avail
	p.lastErrors = errs
	p.mu.Unlock()

	return avail
}

// Snapshot returns the most recent availability snapshot.
func (p *Probe) Snapshot() Availability {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(Availability, len(p.current))
	for k, v := range p.current {
		out[k] = v
	}
	return out
}

// LastErrors returns the last probe error per unavailable provider.
func (p *Probe) LastErrors() map[core.ProviderID]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[core.ProviderID]string, len(p.lastErrors))
	for k, v := range p.lastErrors {
		out[k] = v
	}
	return out
}
