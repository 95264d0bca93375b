package progress

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/FaryzK/filesplittingservice/internal/domain"
)

var _ Tracker = (*MemoryTracker)(nil)

// MemoryTracker keeps snapshots in process memory. Suitable for
// single-process deployments and tests.
type MemoryTracker struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*domain.ProgressSnapshot
}

// NewMemoryTracker creates an empty in-memory tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{jobs: make(map[uuid.UUID]*domain.ProgressSnapshot)}
}

func (m *MemoryTracker) Create(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id] = &domain.ProgressSnapshot{
		JobID:   id,
		Status:  domain.StatusQueued,
		Message: "Waiting for a worker...",
	}
	return nil
}

func (m *MemoryTracker) Start(ctx context.Context, id uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	snap.Status = domain.StatusRunning
	snap.Message = message
	return nil
}

func (m *MemoryTracker) Update(ctx context.Context, id uuid.UUID, upd Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	apply(snap, upd)
	return nil
}

func (m *MemoryTracker) Complete(ctx context.Context, id uuid.UUID, result *domain.SplitResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	snap.Status = domain.StatusCompleted
	snap.Percentage = 100
	snap.Message = "Processing complete"
	snap.Result = result
	return nil
}

func (m *MemoryTracker) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	snap.Status = domain.StatusFailed
	snap.Message = "Error: " + reason
	snap.Error = reason
	return nil
}

func (m *MemoryTracker) Get(ctx context.Context, id uuid.UUID) (*domain.ProgressSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return clone(snap), nil
}

func (m *MemoryTracker) Cleanup(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}
