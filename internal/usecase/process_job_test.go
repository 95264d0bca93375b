package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/artifacts"
	"github.com/FaryzK/filesplittingservice/internal/domain"
	"github.com/FaryzK/filesplittingservice/internal/progress"
	mockrepo "github.com/FaryzK/filesplittingservice/internal/repository/mock"
	"github.com/FaryzK/filesplittingservice/internal/splitter"
)

type fakeDoc struct{ pages int }

func (d *fakeDoc) Path() string   { return "" }
func (d *fakeDoc) PageCount() int { return d.pages }
func (d *fakeDoc) Close() error   { return nil }

type fakeSource struct{ pages int }

func (s *fakeSource) Open(ctx context.Context, path string) (splitter.Document, error) {
	return &fakeDoc{pages: s.pages}, nil
}

type fakeMatcher struct {
	firstPages map[int]string
	err        error
}

func (m *fakeMatcher) Match(ctx context.Context, doc splitter.Document, page int) (splitter.Match, error) {
	if m.err != nil {
		return splitter.Match{}, m.err
	}
	if name, ok := m.firstPages[page]; ok {
		return splitter.Match{Matched: true, Document: name, Score: 0.9}, nil
	}
	return splitter.Match{}, nil
}

type fakeWriter struct{ written []string }

func (w *fakeWriter) WriteSegment(ctx context.Context, doc splitter.Document, start, end int, filename string) error {
	w.written = append(w.written, filename)
	return nil
}

type processFixture struct {
	repo    *mockrepo.MockJobRepository
	idem    *mockrepo.MockIdempotencyStore
	tracker *progress.MemoryTracker
	writer  *fakeWriter
	uc      *ProcessJobUsecase
	job     *domain.Job
}

func newProcessFixture(t *testing.T, pages int, firstPages map[int]string, matchErr error) *processFixture {
	t.Helper()

	uploadDir := t.TempDir()
	store, err := artifacts.NewStore(uploadDir, t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	uploadPath := filepath.Join(uploadDir, "batch.pdf")
	if err := os.WriteFile(uploadPath, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}

	f := &processFixture{
		repo:    mockrepo.NewMockJobRepository(),
		idem:    mockrepo.NewMockIdempotencyStore(),
		tracker: progress.NewMemoryTracker(),
		writer:  &fakeWriter{},
	}
	engine := splitter.NewEngine(&fakeSource{pages: pages}, &fakeMatcher{firstPages: firstPages, err: matchErr}, f.writer, zap.NewNop())
	f.uc = NewProcessJobUsecase(f.repo, f.idem, f.tracker, engine, store, zap.NewNop())

	f.job = &domain.Job{
		JobID:      uuid.New(),
		Filename:   "batch.pdf",
		UploadPath: uploadPath,
		Status:     domain.StatusQueued,
	}
	f.repo.Create(context.Background(), f.job)
	f.tracker.Create(context.Background(), f.job.JobID)
	return f
}

func TestProcessJob_Success(t *testing.T) {
	f := newProcessFixture(t, 4, map[int]string{0: "invoice.pdf", 2: "receipt.pdf"}, nil)

	dup, err := f.uc.Execute(context.Background(), f.job)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if dup {
		t.Fatal("not a duplicate")
	}

	stored, err := f.repo.GetByID(context.Background(), f.job.JobID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.StatusCompleted {
		t.Errorf("expected completed, got %s", stored.Status)
	}
	if stored.Result == nil || len(stored.Result.Items) != 2 {
		t.Fatalf("unexpected result: %+v", stored.Result)
	}
	if stored.Result.Items[0].Filename != "batch_document_1.pdf" {
		t.Errorf("unexpected first item: %+v", stored.Result.Items[0])
	}

	snap, err := f.tracker.Get(context.Background(), f.job.JobID)
	if err != nil {
		t.Fatalf("tracker.Get: %v", err)
	}
	if snap.Status != domain.StatusCompleted || snap.Percentage != 100 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if len(snap.ProcessedPages) != 4 {
		t.Errorf("expected 4 page outcomes, got %d", len(snap.ProcessedPages))
	}
	if len(snap.IdentifiedSegments) != 2 {
		t.Errorf("expected 2 segments, got %d", len(snap.IdentifiedSegments))
	}

	// The upload is removed once the job is done.
	if _, err := os.Stat(f.job.UploadPath); !os.IsNotExist(err) {
		t.Error("upload should be removed after processing")
	}
}

func TestProcessJob_Duplicate(t *testing.T) {
	f := newProcessFixture(t, 4, map[int]string{0: "invoice.pdf"}, nil)
	f.idem.AcquireLockFunc = func(ctx context.Context, jobID uuid.UUID) (bool, error) {
		return false, nil
	}

	dup, err := f.uc.Execute(context.Background(), f.job)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !dup {
		t.Error("expected duplicate")
	}
	if len(f.writer.written) != 0 {
		t.Error("duplicate must not write segments")
	}
}

func TestProcessJob_NoFirstPagesFailsJob(t *testing.T) {
	f := newProcessFixture(t, 4, map[int]string{}, nil)

	dup, err := f.uc.Execute(context.Background(), f.job)
	if err != nil {
		t.Fatalf("business failure must not propagate: %v", err)
	}
	if dup {
		t.Fatal("not a duplicate")
	}

	stored, _ := f.repo.GetByID(context.Background(), f.job.JobID)
	if stored.Status != domain.StatusFailed {
		t.Errorf("expected failed, got %s", stored.Status)
	}
	if stored.Error == "" {
		t.Error("expected failure reason on the job")
	}

	snap, _ := f.tracker.Get(context.Background(), f.job.JobID)
	if snap.Status != domain.StatusFailed {
		t.Errorf("expected failed snapshot, got %+v", snap)
	}
}

func TestProcessJob_InfrastructureErrorPropagates(t *testing.T) {
	f := newProcessFixture(t, 4, nil, errors.New("inference sidecar unreachable"))

	_, err := f.uc.Execute(context.Background(), f.job)
	if err == nil {
		t.Fatal("expected error")
	}

	stored, _ := f.repo.GetByID(context.Background(), f.job.JobID)
	if stored.Status != domain.StatusFailed {
		t.Errorf("expected failed, got %s", stored.Status)
	}
}

func TestProcessJob_LockErrorPropagates(t *testing.T) {
	f := newProcessFixture(t, 4, map[int]string{0: "a.pdf"}, nil)
	f.idem.AcquireLockFunc = func(ctx context.Context, jobID uuid.UUID) (bool, error) {
		return false, errors.New("redis unavailable")
	}

	if _, err := f.uc.Execute(context.Background(), f.job); err == nil {
		t.Error("expected error")
	}
}
