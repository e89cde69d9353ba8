// Package metrics provides the append-only log of AI operation attempts
// consumed by the admin analytics surface.
package metrics

import (
	"context"
	"sync"

	"github.com/moscooltech/suggest-ila2/internal/core"
)

// Recorder appends OperationRecords. Record is best-effort and must never
// fail the caller: implementations swallow their own write errors.
type Recorder interface {
	Record(ctx context.Context, rec core.OperationRecord)
}

// MemoryRecorder keeps records in memory. It backs tests and the degraded
// mode when no database is configured.
type MemoryRecorder struct {
	mu      sync.Mutex
	records []core.OperationRecord
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record appends rec to the in-memory log.
func (m *MemoryRecorder) Record(_ context.Context, rec core.OperationRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

// Records returns a copy of all recorded operations in append order.
func (m *MemoryRecorder) Records() []core.OperationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.OperationRecord, len(m.records))
	copy(out, m.records)
	return out
}
