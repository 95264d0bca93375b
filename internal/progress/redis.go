package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/FaryzK/filesplittingservice/internal/domain"
)

var _ Tracker = (*RedisTracker)(nil)

const (
	progressKeyPrefix = "splitsvc:progress:"

	// Snapshots expire on their own so abandoned jobs do not
	// accumulate; terminal snapshots stay readable for a while after
	// the job finishes.
	progressTTL = time.Hour
)

// RedisTracker stores snapshots in Redis so the API server and workers
// can run as separate processes. Each job has a single writer (the
// worker holding its idempotency lock), so read-modify-write per update
// is safe.
type RedisTracker struct {
	client *goredis.Client
}

// NewRedisTracker creates a Redis-backed tracker.
func NewRedisTracker(client *goredis.Client) *RedisTracker {
	return &RedisTracker{client: client}
}

func (r *RedisTracker) Create(ctx context.Context, id uuid.UUID) error {
	return r.store(ctx, &domain.ProgressSnapshot{
		JobID:   id,
		Status:  domain.StatusQueued,
		Message: "Waiting for a worker...",
	})
}

func (r *RedisTracker) Start(ctx context.Context, id uuid.UUID, message string) error {
	snap, err := r.Get(ctx, id)
	if errors.Is(err, domain.ErrJobNotFound) {
		// The queued entry can expire while a job sits in the queue.
		snap = &domain.ProgressSnapshot{JobID: id}
	} else if err != nil {
		return err
	}
	snap.Status = domain.StatusRunning
	snap.Message = message
	return r.store(ctx, snap)
}

func (r *RedisTracker) Update(ctx context.Context, id uuid.UUID, upd Update) error {
	return r.mutate(ctx, id, func(snap *domain.ProgressSnapshot) {
		apply(snap, upd)
	})
}

func (r *RedisTracker) Complete(ctx context.Context, id uuid.UUID, result *domain.SplitResult) error {
	return r.mutate(ctx, id, func(snap *domain.ProgressSnapshot) {
		snap.Status = domain.StatusCompleted
		snap.Percentage = 100
		snap.Message = "Processing complete"
		snap.Result = result
	})
}

func (r *RedisTracker) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	return r.mutate(ctx, id, func(snap *domain.ProgressSnapshot) {
		snap.Status = domain.StatusFailed
		snap.Message = "Error: " + reason
		snap.Error = reason
	})
}

func (r *RedisTracker) Get(ctx context.Context, id uuid.UUID) (*domain.ProgressSnapshot, error) {
	raw, err := r.client.Get(ctx, progressKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("redis: get progress: %w", err)
	}

	snap := &domain.ProgressSnapshot{}
	if err := json.Unmarshal(raw, snap); err != nil {
		return nil, fmt.Errorf("redis: decode progress: %w", err)
	}
	return snap, nil
}

func (r *RedisTracker) Cleanup(ctx context.Context, id uuid.UUID) error {
	return r.client.Del(ctx, progressKeyPrefix+id.String()).Err()
}

func (r *RedisTracker) mutate(ctx context.Context, id uuid.UUID, fn func(*domain.ProgressSnapshot)) error {
	snap, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	fn(snap)
	return r.store(ctx, snap)
}

func (r *RedisTracker) store(ctx context.Context, snap *domain.ProgressSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: encode progress: %w", err)
	}
	if err := r.client.Set(ctx, progressKeyPrefix+snap.JobID.String(), raw, progressTTL).Err(); err != nil {
		return fmt.Errorf("redis: store progress: %w", err)
	}
	return nil
}
