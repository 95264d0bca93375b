package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/artifacts"
	"github.com/FaryzK/filesplittingservice/internal/domain"
	"github.com/FaryzK/filesplittingservice/internal/metrics"
	"github.com/FaryzK/filesplittingservice/internal/progress"
	"github.com/FaryzK/filesplittingservice/internal/repository"
	"github.com/FaryzK/filesplittingservice/internal/splitter"
)

// ProcessJobUsecase orchestrates one split on the worker side.
type ProcessJobUsecase struct {
	repo       repository.JobRepository
	idempotent repository.IdempotencyStore
	tracker    progress.Tracker
	engine     *splitter.Engine
	store      *artifacts.Store
	logger     *zap.Logger
}

// NewProcessJobUsecase creates a new ProcessJobUsecase.
func NewProcessJobUsecase(
	repo repository.JobRepository,
	idempotent repository.IdempotencyStore,
	tracker progress.Tracker,
	engine *splitter.Engine,
	store *artifacts.Store,
	logger *zap.Logger,
) *ProcessJobUsecase {
	return &ProcessJobUsecase{
		repo:       repo,
		idempotent: idempotent,
		tracker:    tracker,
		engine:     engine,
		store:      store,
		logger:     logger,
	}
}

// Execute processes a single job: idempotency check → status update →
// split → store result. Returns (isDuplicate, error). A business
// failure (untrained index, no first pages) is recorded on the job and
// returns a nil error so the message is acknowledged; only
// infrastructure errors propagate.
func (uc *ProcessJobUsecase) Execute(ctx context.Context, job *domain.Job) (bool, error) {
	// Step 1: Idempotency check
	acquired, err := uc.idempotent.AcquireLock(ctx, job.JobID)
	if err != nil {
		uc.logger.Error("Failed to acquire idempotency lock", zap.Error(err), zap.String("job_id", job.JobID.String()))
		return false, err
	}
	if !acquired {
		uc.logger.Info("Duplicate message detected, skipping", zap.String("job_id", job.JobID.String()))
		return true, nil
	}

	// Step 2: Mark running
	if err := uc.repo.UpdateStatus(ctx, job.JobID, domain.StatusRunning); err != nil {
		uc.logger.Error("Failed to update job status", zap.Error(err), zap.String("job_id", job.JobID.String()))
		return false, err
	}
	if err := uc.tracker.Start(ctx, job.JobID, "Analyzing pages..."); err != nil {
		uc.logger.Warn("Failed to start progress", zap.Error(err), zap.String("job_id", job.JobID.String()))
	}

	// Step 3: Split
	baseName := strings.TrimSuffix(filepath.Base(job.Filename), filepath.Ext(job.Filename))
	rep := &trackerReporter{ctx: ctx, tracker: uc.tracker, jobID: job.JobID, logger: uc.logger}

	result, err := uc.engine.Split(ctx, job.UploadPath, baseName, rep)
	if err != nil {
		if isBusinessFailure(err) {
			uc.fail(ctx, job, err.Error())
			return false, nil
		}
		uc.fail(ctx, job, "internal error while splitting")
		return false, err
	}

	// Step 4: Store result
	if err := uc.repo.SetResult(ctx, job.JobID, domain.StatusCompleted, result, ""); err != nil {
		uc.logger.Error("Failed to store result", zap.Error(err), zap.String("job_id", job.JobID.String()))
		return false, err
	}
	if err := uc.tracker.Complete(ctx, job.JobID, result); err != nil {
		uc.logger.Warn("Failed to record completion", zap.Error(err), zap.String("job_id", job.JobID.String()))
	}

	// Step 5: Release idempotency lock and drop the upload
	_ = uc.idempotent.ReleaseLock(ctx, job.JobID)
	if err := uc.store.RemoveUpload(job.UploadPath); err != nil {
		uc.logger.Warn("Failed to remove upload", zap.Error(err), zap.String("path", job.UploadPath))
	}

	metrics.JobsFinished.WithLabelValues(string(domain.StatusCompleted)).Inc()
	uc.logger.Info("Job processed successfully",
		zap.String("job_id", job.JobID.String()),
		zap.Int("segments", len(result.Items)),
	)

	return false, nil
}

// isBusinessFailure reports whether the split failed because of the
// document or the training state rather than the infrastructure.
// Retrying these never helps.
func isBusinessFailure(err error) bool {
	return errors.Is(err, domain.ErrNoFirstPages) || errors.Is(err, domain.ErrNotTrained)
}

func (uc *ProcessJobUsecase) fail(ctx context.Context, job *domain.Job, reason string) {
	if err := uc.repo.SetResult(ctx, job.JobID, domain.StatusFailed, nil, reason); err != nil {
		uc.logger.Error("Failed to record failure", zap.Error(err), zap.String("job_id", job.JobID.String()))
	}
	if err := uc.tracker.Fail(ctx, job.JobID, reason); err != nil {
		uc.logger.Warn("Failed to record failure progress", zap.Error(err), zap.String("job_id", job.JobID.String()))
	}
	_ = uc.idempotent.ReleaseLock(ctx, job.JobID)
	_ = uc.store.RemoveUpload(job.UploadPath)
	metrics.JobsFinished.WithLabelValues(string(domain.StatusFailed)).Inc()
}

// trackerReporter forwards engine progress into the tracker.
type trackerReporter struct {
	ctx     context.Context
	tracker progress.Tracker
	jobID   uuid.UUID
	logger  *zap.Logger

	total int
}

var _ splitter.Reporter = (*trackerReporter)(nil)

func (r *trackerReporter) Total(totalPages int) {
	r.total = totalPages
	r.update(progress.Update{
		Message:    fmt.Sprintf("Analyzing %d pages...", totalPages),
		TotalPages: &totalPages,
	})
}

func (r *trackerReporter) Page(outcome domain.PageOutcome) {
	metrics.PagesProcessed.Inc()
	page := outcome.Page
	r.update(progress.Update{
		Message:     fmt.Sprintf("Analyzing page %d of %d", page, r.total),
		CurrentPage: &page,
		PageOutcome: &outcome,
	})
}

func (r *trackerReporter) Segment(seg domain.IdentifiedSegment) {
	r.update(progress.Update{
		Message: fmt.Sprintf("Writing %s", seg.Filename),
		Segment: &seg,
	})
}

func (r *trackerReporter) update(upd progress.Update) {
	if err := r.tracker.Update(r.ctx, r.jobID, upd); err != nil {
		r.logger.Warn("Failed to record progress", zap.Error(err), zap.String("job_id", r.jobID.String()))
	}
}
