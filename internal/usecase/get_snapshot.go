package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/domain"
	"github.com/FaryzK/filesplittingservice/internal/progress"
	"github.com/FaryzK/filesplittingservice/internal/repository"
)

// GetSnapshotUsecase serves the current progress snapshot of a job.
type GetSnapshotUsecase struct {
	repo    repository.JobRepository
	tracker progress.Tracker
	logger  *zap.Logger
}

// NewGetSnapshotUsecase creates a new GetSnapshotUsecase.
func NewGetSnapshotUsecase(repo repository.JobRepository, tracker progress.Tracker, logger *zap.Logger) *GetSnapshotUsecase {
	return &GetSnapshotUsecase{
		repo:    repo,
		tracker: tracker,
		logger:  logger,
	}
}

// Execute returns the live snapshot when the job is still tracked, and
// falls back to the persisted job otherwise. Tracker entries expire
// after a while; the database remains the source of record.
func (uc *GetSnapshotUsecase) Execute(ctx context.Context, id uuid.UUID) (*domain.ProgressSnapshot, error) {
	snap, err := uc.tracker.Get(ctx, id)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, domain.ErrJobNotFound) {
		uc.logger.Warn("Progress lookup failed, falling back to database",
			zap.Error(err), zap.String("job_id", id.String()))
	}

	job, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		uc.logger.Debug("Job not found", zap.String("job_id", id.String()), zap.Error(err))
		return nil, domain.ErrJobNotFound
	}
	return snapshotFromJob(job), nil
}

func snapshotFromJob(job *domain.Job) *domain.ProgressSnapshot {
	snap := &domain.ProgressSnapshot{
		JobID:  job.JobID,
		Status: job.Status,
		Result: job.Result,
		Error:  job.Error,
	}
	switch job.Status {
	case domain.StatusCompleted:
		snap.Percentage = 100
		snap.Message = "Processing complete"
	case domain.StatusFailed:
		snap.Message = "Error: " + job.Error
	case domain.StatusQueued:
		snap.Message = "Waiting for a worker..."
	}
	return snap
}
