package lifecycle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/client"
	"github.com/FaryzK/filesplittingservice/internal/domain"
	"github.com/FaryzK/filesplittingservice/internal/lifecycle"
	"github.com/FaryzK/filesplittingservice/internal/poller"
)

// fakeService scripts the submit call and serves snapshots from a
// per-job fetch counter.
type fakeService struct {
	mu       sync.Mutex
	fetches  map[uuid.UUID]int
	SubmitFn func(ctx context.Context, payload client.UploadPayload) (client.JobHandle, error)
	// SnapshotFor returns the snapshot for the nth fetch (1-based) of a
	// job. Defaults to a perpetual running snapshot.
	SnapshotFor func(id uuid.UUID, n int) (*domain.ProgressSnapshot, error)
}

func newFakeService() *fakeService {
	return &fakeService{fetches: make(map[uuid.UUID]int)}
}

func (f *fakeService) Submit(ctx context.Context, payload client.UploadPayload) (client.JobHandle, error) {
	if f.SubmitFn != nil {
		return f.SubmitFn(ctx, payload)
	}
	return client.JobHandle{ID: uuid.New()}, nil
}

func (f *fakeService) Snapshot(ctx context.Context, id uuid.UUID) (*domain.ProgressSnapshot, error) {
	f.mu.Lock()
	f.fetches[id]++
	n := f.fetches[id]
	f.mu.Unlock()

	if f.SnapshotFor != nil {
		return f.SnapshotFor(id, n)
	}
	return &domain.ProgressSnapshot{JobID: id, Status: domain.StatusRunning}, nil
}

func (f *fakeService) fetchCount(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[id]
}

func newController(svc lifecycle.Service) *lifecycle.Controller {
	return lifecycle.New(svc, zap.NewNop(), lifecycle.Options{
		Poll: poller.Options{Interval: 10 * time.Millisecond},
	})
}

func waitForState(t *testing.T, c *lifecycle.Controller, want lifecycle.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, still %s", want, c.State())
}

func payload() client.UploadPayload {
	return client.UploadPayload{Filename: "composite.pdf", Content: nil}
}

func TestController_SubmitThroughCompleted(t *testing.T) {
	jobID := uuid.New()
	result := &domain.SplitResult{Items: []domain.ResultItem{
		{Filename: "composite_document_1.pdf", StartPage: 1, EndPage: 4},
		{Filename: "composite_document_2.pdf", StartPage: 5, EndPage: 9},
	}}

	svc := newFakeService()
	svc.SubmitFn = func(ctx context.Context, _ client.UploadPayload) (client.JobHandle, error) {
		return client.JobHandle{ID: jobID}, nil
	}
	svc.SnapshotFor = func(id uuid.UUID, n int) (*domain.ProgressSnapshot, error) {
		switch n {
		case 1:
			return &domain.ProgressSnapshot{JobID: id, Status: domain.StatusRunning, Percentage: 10}, nil
		case 2:
			return &domain.ProgressSnapshot{JobID: id, Status: domain.StatusRunning, Percentage: 55}, nil
		default:
			return &domain.ProgressSnapshot{JobID: id, Status: domain.StatusCompleted, Percentage: 100, Result: result}, nil
		}
	}

	c := newController(svc)
	if err := c.Submit(context.Background(), payload()); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}

	waitForState(t, c, lifecycle.StateCompleted)

	view := c.View()
	if view.Result == nil || len(view.Result.Items) != 2 {
		t.Fatalf("expected result with 2 items, got %+v", view.Result)
	}
	if view.Result.Items[0].Filename != "composite_document_1.pdf" {
		t.Errorf("unexpected first item: %+v", view.Result.Items[0])
	}
	if view.Percentage != 100 {
		t.Errorf("expected percentage 100, got %d", view.Percentage)
	}

	// Terminal snapshot ends polling: exactly 3 fetches were issued.
	time.Sleep(50 * time.Millisecond)
	if got := svc.fetchCount(jobID); got != 3 {
		t.Errorf("expected exactly 3 fetches, got %d", got)
	}
}

func TestController_SubmissionFailureShortCircuits(t *testing.T) {
	svc := newFakeService()
	svc.SubmitFn = func(ctx context.Context, _ client.UploadPayload) (client.JobHandle, error) {
		return client.JobHandle{}, &client.SubmissionError{Reason: "bad file type"}
	}

	c := newController(svc)
	if err := c.Submit(context.Background(), payload()); err == nil {
		t.Fatal("expected submit error")
	}

	if c.State() != lifecycle.StateFailed {
		t.Errorf("expected Failed, got %s", c.State())
	}
	if got := c.View().FailureReason; got != "bad file type" {
		t.Errorf("expected failure reason %q, got %q", "bad file type", got)
	}

	// No poller was ever started.
	time.Sleep(50 * time.Millisecond)
	svc.mu.Lock()
	total := len(svc.fetches)
	svc.mu.Unlock()
	if total != 0 {
		t.Errorf("expected no snapshot fetches, got fetches for %d jobs", total)
	}
}

func TestController_TransientFetchErrorNeverSurfaces(t *testing.T) {
	jobID := uuid.New()
	svc := newFakeService()
	svc.SubmitFn = func(ctx context.Context, _ client.UploadPayload) (client.JobHandle, error) {
		return client.JobHandle{ID: jobID}, nil
	}
	svc.SnapshotFor = func(id uuid.UUID, n int) (*domain.ProgressSnapshot, error) {
		if n == 1 {
			return nil, &client.FetchError{JobID: id.String()}
		}
		return &domain.ProgressSnapshot{JobID: id, Status: domain.StatusRunning, Percentage: 30}, nil
	}

	c := newController(svc)
	if err := c.Submit(context.Background(), payload()); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.View().Percentage != 30 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}

	if c.State() != lifecycle.StatePolling {
		t.Errorf("expected Polling, got %s", c.State())
	}
	view := c.View()
	if view.Percentage != 30 {
		t.Errorf("expected percentage 30 from the successful tick, got %d", view.Percentage)
	}
	if view.FailureReason != "" {
		t.Errorf("transient fetch error surfaced: %q", view.FailureReason)
	}

	c.Abandon()
}

func TestController_AbandonStopsPollingMidJob(t *testing.T) {
	jobID := uuid.New()
	svc := newFakeService()
	svc.SubmitFn = func(ctx context.Context, _ client.UploadPayload) (client.JobHandle, error) {
		return client.JobHandle{ID: jobID}, nil
	}

	c := lifecycle.New(svc, zap.NewNop(), lifecycle.Options{
		Poll: poller.Options{Interval: 100 * time.Millisecond},
	})
	if err := c.Submit(context.Background(), payload()); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}

	// Wait for fetch #1, then abandon before fetch #2's scheduled time.
	deadline := time.Now().Add(time.Second)
	for svc.fetchCount(jobID) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	c.Abandon()

	calls := svc.fetchCount(jobID)
	time.Sleep(300 * time.Millisecond)
	if got := svc.fetchCount(jobID); got != calls {
		t.Errorf("fetches continued after Abandon: %d -> %d", calls, got)
	}
}

func TestController_ResubmissionStopsPreviousPoller(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	ids := []uuid.UUID{first, second}

	svc := newFakeService()
	var submits int
	svc.SubmitFn = func(ctx context.Context, _ client.UploadPayload) (client.JobHandle, error) {
		id := ids[submits]
		submits++
		return client.JobHandle{ID: id}, nil
	}
	svc.SnapshotFor = func(id uuid.UUID, n int) (*domain.ProgressSnapshot, error) {
		if id == second && n >= 2 {
			return &domain.ProgressSnapshot{JobID: id, Status: domain.StatusCompleted, Percentage: 100, Result: &domain.SplitResult{}}, nil
		}
		return &domain.ProgressSnapshot{JobID: id, Status: domain.StatusRunning, Percentage: 10}, nil
	}

	c := newController(svc)
	if err := c.Submit(context.Background(), payload()); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for svc.fetchCount(first) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	// At most one live poller: resubmitting stops the first job's
	// poller before the new one starts.
	if err := c.Submit(context.Background(), payload()); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	firstCalls := svc.fetchCount(first)

	waitForState(t, c, lifecycle.StateCompleted)
	time.Sleep(50 * time.Millisecond)

	if got := svc.fetchCount(first); got != firstCalls {
		t.Errorf("first job still polled after resubmission: %d -> %d", firstCalls, got)
	}
	if c.View().JobID != second {
		t.Errorf("expected view bound to second job, got %s", c.View().JobID)
	}
}

func TestController_JobFailureSurfacesReason(t *testing.T) {
	svc := newFakeService()
	svc.SnapshotFor = func(id uuid.UUID, n int) (*domain.ProgressSnapshot, error) {
		return &domain.ProgressSnapshot{JobID: id, Status: domain.StatusFailed, Error: "no first pages identified"}, nil
	}

	c := newController(svc)
	if err := c.Submit(context.Background(), payload()); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}

	waitForState(t, c, lifecycle.StateFailed)
	if got := c.View().FailureReason; got != "no first pages identified" {
		t.Errorf("expected service failure reason, got %q", got)
	}
}

func TestController_ResetReturnsToIdle(t *testing.T) {
	svc := newFakeService()
	c := newController(svc)

	if err := c.Submit(context.Background(), payload()); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	waitForState(t, c, lifecycle.StatePolling)

	c.Reset()
	if c.State() != lifecycle.StateIdle {
		t.Errorf("expected Idle after reset, got %s", c.State())
	}
	view := c.View()
	if view.Result != nil || view.FailureReason != "" || view.Percentage != 0 {
		t.Errorf("expected cleared view after reset, got %+v", view)
	}
}

func TestController_SupersededSubmitDoesNotTouchState(t *testing.T) {
	block := make(chan struct{})
	jobID := uuid.New()

	svc := newFakeService()
	var submitMu sync.Mutex
	var submits int
	svc.SubmitFn = func(ctx context.Context, _ client.UploadPayload) (client.JobHandle, error) {
		submitMu.Lock()
		submits++
		first := submits == 1
		submitMu.Unlock()
		if first {
			<-block
			return client.JobHandle{ID: uuid.New()}, nil
		}
		return client.JobHandle{ID: jobID}, nil
	}
	svc.SnapshotFor = func(id uuid.UUID, n int) (*domain.ProgressSnapshot, error) {
		return &domain.ProgressSnapshot{JobID: id, Status: domain.StatusCompleted, Percentage: 100, Result: &domain.SplitResult{}}, nil
	}

	c := newController(svc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Submit(context.Background(), payload())
	}()

	// Wait until the first submit is in flight, then displace it.
	deadline := time.Now().Add(time.Second)
	for {
		if c.State() == lifecycle.StateSubmitting {
			break
		}
		if !time.Now().Before(deadline) {
			t.Fatal("first submit never reached Submitting")
		}
		time.Sleep(time.Millisecond)
	}
	if err := c.Submit(context.Background(), payload()); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	close(block)

	if err := <-errCh; err != lifecycle.ErrSuperseded {
		t.Errorf("expected ErrSuperseded from the displaced submit, got %v", err)
	}

	waitForState(t, c, lifecycle.StateCompleted)
	if c.View().JobID != jobID {
		t.Errorf("expected state bound to the second submission's job, got %s", c.View().JobID)
	}
}
