package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/moscooltech/suggest-ila2/internal/core"
)

// fakeTarget implements ProbeTarget with canned probe outcomes.
type fakeTarget struct {
	name       core.ProviderID
	configured bool
	err        error
	calls      int
}

func (f *fakeTarget) Name() core.ProviderID { return f.name }
func (f *fakeTarget) Configured() bool      { return f.configured }

func (f *fakeTarget) CompleteMinimal(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "ok", nil
}

func TestRefreshReportsPerProviderLiveness(t *testing.T) {
	up := &fakeTarget{name: core.ProviderGroq, configured: true}
	down := &fakeTarget{name: core.ProviderOpenRouter, configured: true, err: errors.New("HTTP 503")}
	probe := NewProbe([]ProbeTarget{up, down}, true)

	avail := probe.Refresh(context.Background())

	if !avail.Available(core.ProviderGroq) {
		t.Error("responsive provider should be available")
	}
	if avail.Available(core.ProviderOpenRouter) {
		t.Error("failing provider should be unavailable")
	}
	if !avail.Available(core.ProviderGemini) {
		t.Error("configured embedder should be reported available")
	}

	errs := probe.LastErrors()
	if errs[core.ProviderOpenRouter] != "HTTP 503" {
		t.Errorf("expected probe error captured, got %q", errs[core.ProviderOpenRouter])
	}
	if _, ok := errs[core.ProviderGroq]; ok {
		t.Error("healthy provider should carry no error")
	}
}

func TestRefreshSkipsUnconfiguredTargets(t *testing.T) {
	keyless := &fakeTarget{name: core.ProviderGroq, configured: false}
	probe := NewProbe([]ProbeTarget{keyless}, false)

	avail := probe.Refresh(context.Background())

	if keyless.calls != 0 {
		t.Errorf("unconfigured target must not be called, got %d calls", keyless.calls)
	}
	if avail.Available(core.ProviderGroq) {
		t.Error("unconfigured provider should be unavailable")
	}
	if avail.Available(core.ProviderGemini) {
		t.Error("unset embedder should be unavailable")
	}
	if got := probe.LastErrors()[core.ProviderGroq]; got != "API key not configured" {
		t.Errorf("unexpected error text: %q", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	up := &fakeTarget{name: core.ProviderGroq, configured: true}
	probe := NewProbe([]ProbeTarget{up}, false)
	probe.Refresh(context.Background())

	snap := probe.Snapshot()
	snap[core.ProviderGroq] = false

	if !probe.Snapshot().Available(core.ProviderGroq) {
		t.Error("mutating a snapshot must not affect the probe's state")
	}
}

func TestSnapshotBeforeFirstRefreshIsAllDown(t *testing.T) {
	probe := NewProbe([]ProbeTarget{&fakeTarget{name: core.ProviderGroq, configured: true}}, true)

	snap := probe.Snapshot()
	if snap.Available(core.ProviderGroq) || snap.Available(core.ProviderGemini) {
		t.Errorf("nothing should be available before the first refresh: %v", snap)
	}
}
