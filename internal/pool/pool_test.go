package pool_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/artifacts"
	"github.com/FaryzK/filesplittingservice/internal/domain"
	"github.com/FaryzK/filesplittingservice/internal/pool"
	"github.com/FaryzK/filesplittingservice/internal/progress"
	mockrepo "github.com/FaryzK/filesplittingservice/internal/repository/mock"
	"github.com/FaryzK/filesplittingservice/internal/splitter"
	"github.com/FaryzK/filesplittingservice/internal/usecase"
)

type stubDoc struct{}

func (stubDoc) Path() string   { return "" }
func (stubDoc) PageCount() int { return 2 }
func (stubDoc) Close() error   { return nil }

type stubSource struct{}

func (stubSource) Open(ctx context.Context, path string) (splitter.Document, error) {
	return stubDoc{}, nil
}

type stubMatcher struct{ err error }

func (m stubMatcher) Match(ctx context.Context, doc splitter.Document, page int) (splitter.Match, error) {
	if m.err != nil {
		return splitter.Match{}, m.err
	}
	if page == 0 {
		return splitter.Match{Matched: true, Document: "form.pdf", Score: 0.9}, nil
	}
	return splitter.Match{}, nil
}

type stubWriter struct{}

func (stubWriter) WriteSegment(ctx context.Context, doc splitter.Document, start, end int, filename string) error {
	return nil
}

func newTestPool(t *testing.T, poolSize int, idem *mockrepo.MockIdempotencyStore, matchErr error) (chan *domain.JobMessage, *pool.WorkerPool, *mockrepo.MockJobRepository, context.CancelFunc) {
	t.Helper()

	logger := zap.NewNop()
	repo := mockrepo.NewMockJobRepository()
	store, err := artifacts.NewStore(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	engine := splitter.NewEngine(stubSource{}, stubMatcher{err: matchErr}, stubWriter{}, logger)
	uc := usecase.NewProcessJobUsecase(repo, idem, progress.NewMemoryTracker(), engine, store, logger)

	ch := make(chan *domain.JobMessage, 16)
	ctx, cancel := context.WithCancel(context.Background())
	wp := pool.NewWorkerPool(poolSize, ch, uc, logger)
	wp.Start(ctx)

	return ch, wp, repo, cancel
}

func sendJob(t *testing.T, ch chan<- *domain.JobMessage, repo *mockrepo.MockJobRepository, acked *atomic.Int32, nacked *atomic.Int32) {
	t.Helper()

	dir := t.TempDir()
	uploadPath := filepath.Join(dir, "batch.pdf")
	if err := os.WriteFile(uploadPath, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}

	job := &domain.Job{
		JobID:      uuid.New(),
		Filename:   "batch.pdf",
		UploadPath: uploadPath,
		Status:     domain.StatusQueued,
	}
	repo.Create(context.Background(), job)

	ch <- &domain.JobMessage{
		Job: job,
		Ack: func() error {
			acked.Add(1)
			return nil
		},
		Nack: func(requeue bool) error {
			nacked.Add(1)
			return nil
		},
	}
}

// Test: pool processes jobs and ACKs them.
func TestPool_ProcessAndAck(t *testing.T) {
	ch, wp, repo, cancel := newTestPool(t, 2, mockrepo.NewMockIdempotencyStore(), nil)

	var acked, nacked atomic.Int32

	for i := 0; i < 5; i++ {
		sendJob(t, ch, repo, &acked, &nacked)
	}

	// Give workers time to process.
	time.Sleep(200 * time.Millisecond)

	cancel()
	wp.Stop()

	if acked.Load() != 5 {
		t.Errorf("expected 5 ACKs, got %d", acked.Load())
	}
	if nacked.Load() != 0 {
		t.Errorf("expected 0 NACKs, got %d", nacked.Load())
	}
}

// Test: pool NACKs jobs that fail on infrastructure errors.
func TestPool_NacksOnFailure(t *testing.T) {
	ch, wp, repo, cancel := newTestPool(t, 1, mockrepo.NewMockIdempotencyStore(), errors.New("sidecar unreachable"))

	var acked, nacked atomic.Int32
	sendJob(t, ch, repo, &acked, &nacked)

	time.Sleep(200 * time.Millisecond)

	cancel()
	wp.Stop()

	if nacked.Load() != 1 {
		t.Errorf("expected 1 NACK, got %d", nacked.Load())
	}
	if acked.Load() != 0 {
		t.Errorf("expected 0 ACKs, got %d", acked.Load())
	}
}

// Test: pool shuts down gracefully (context cancellation).
func TestPool_GracefulShutdown(t *testing.T) {
	ch, wp, repo, cancel := newTestPool(t, 4, mockrepo.NewMockIdempotencyStore(), nil)

	// Send some jobs then immediately cancel.
	var acked, nacked atomic.Int32
	sendJob(t, ch, repo, &acked, &nacked)
	sendJob(t, ch, repo, &acked, &nacked)

	// Small delay so at least one job gets picked up.
	time.Sleep(50 * time.Millisecond)
	cancel()
	wp.Stop()
	close(ch)

	// All sent jobs should be ACKed (they were in the buffer before cancel).
	total := acked.Load() + nacked.Load()
	if total < 1 {
		t.Errorf("expected at least 1 processed job, got %d", total)
	}
}

// Test: pool handles duplicate jobs (ACKs them, not NACKs).
func TestPool_DuplicateIsAcked(t *testing.T) {
	idem := mockrepo.NewMockIdempotencyStore()
	idem.AcquireLockFunc = func(ctx context.Context, jobID uuid.UUID) (bool, error) {
		return false, nil // duplicate
	}
	ch, wp, repo, cancel := newTestPool(t, 1, idem, nil)

	var acked, nacked atomic.Int32
	sendJob(t, ch, repo, &acked, &nacked)

	time.Sleep(200 * time.Millisecond)
	cancel()
	wp.Stop()

	if acked.Load() != 1 {
		t.Errorf("expected 1 ACK for duplicate, got %d", acked.Load())
	}
	if nacked.Load() != 0 {
		t.Errorf("expected 0 NACKs, got %d", nacked.Load())
	}
}
