package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/FaryzK/filesplittingservice/internal/repository"
)

// Ensure MockIdempotencyStore implements repository.IdempotencyStore.
var _ repository.IdempotencyStore = (*MockIdempotencyStore)(nil)

// MockIdempotencyStore is an in-memory idempotency store for testing.
type MockIdempotencyStore struct {
	mu     sync.Mutex
	locked map[uuid.UUID]bool

	AcquireLockFunc func(ctx context.Context, jobID uuid.UUID) (bool, error)
	ReleaseLockFunc func(ctx context.Context, jobID uuid.UUID) error
}

// NewMockIdempotencyStore creates a new mock idempotency store.
func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		locked: make(map[uuid.UUID]bool),
	}
}

func (m *MockIdempotencyStore) AcquireLock(ctx context.Context, jobID uuid.UUID) (bool, error) {
	if m.AcquireLockFunc != nil {
		return m.AcquireLockFunc(ctx, jobID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked[jobID] {
		return false, nil
	}
	m.locked[jobID] = true
	return true, nil
}

func (m *MockIdempotencyStore) ReleaseLock(ctx context.Context, jobID uuid.UUID) error {
	if m.ReleaseLockFunc != nil {
		return m.ReleaseLockFunc(ctx, jobID)
	}
	return nil
}
