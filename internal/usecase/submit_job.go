package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/artifacts"
	"github.com/FaryzK/filesplittingservice/internal/domain"
	"github.com/FaryzK/filesplittingservice/internal/metrics"
	"github.com/FaryzK/filesplittingservice/internal/progress"
	"github.com/FaryzK/filesplittingservice/internal/publisher"
	"github.com/FaryzK/filesplittingservice/internal/repository"
)

// UploadRequest carries an incoming document submission.
type UploadRequest struct {
	Filename string
	Content  io.Reader
	Size     int64
}

// SubmitJobUsecase handles the business logic for submitting split jobs.
type SubmitJobUsecase struct {
	repo      repository.JobRepository
	publisher publisher.Publisher
	tracker   progress.Tracker
	store     *artifacts.Store
	logger    *zap.Logger
}

// NewSubmitJobUsecase creates a new SubmitJobUsecase.
func NewSubmitJobUsecase(repo repository.JobRepository, pub publisher.Publisher, tracker progress.Tracker, store *artifacts.Store, logger *zap.Logger) *SubmitJobUsecase {
	return &SubmitJobUsecase{
		repo:      repo,
		publisher: pub,
		tracker:   tracker,
		store:     store,
		logger:    logger,
	}
}

// Execute validates the upload, persists the job, enqueues it for a
// worker, and returns the job ID.
func (uc *SubmitJobUsecase) Execute(ctx context.Context, req *UploadRequest) (*domain.SubmitResponse, error) {
	if strings.ToLower(filepath.Ext(req.Filename)) != ".pdf" {
		return nil, domain.ErrNotPDF
	}
	if req.Size == 0 {
		return nil, domain.ErrEmptyUpload
	}

	// Generate UUIDv7 (time-ordered)
	jobID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate UUIDv7: %w", err)
	}

	// Prefix with the job ID so concurrent uploads of the same file
	// never collide on disk.
	storedName := jobID.String() + "_" + filepath.Base(req.Filename)
	uploadPath, err := uc.store.SaveUpload(storedName, req.Content)
	if err != nil {
		uc.logger.Error("Failed to store upload", zap.Error(err), zap.String("job_id", jobID.String()))
		return nil, fmt.Errorf("store upload: %w", err)
	}

	job := &domain.Job{
		JobID:      jobID,
		Filename:   req.Filename,
		UploadPath: uploadPath,
		Status:     domain.StatusQueued,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	// Persist to PostgreSQL
	if err := uc.repo.Create(ctx, job); err != nil {
		uc.logger.Error("Failed to create job in database", zap.Error(err), zap.String("job_id", jobID.String()))
		_ = uc.store.RemoveUpload(uploadPath)
		return nil, fmt.Errorf("create job: %w", err)
	}

	// Register progress before publishing so the first snapshot fetch
	// after submission always finds the job.
	if err := uc.tracker.Create(ctx, jobID); err != nil {
		uc.logger.Warn("Failed to register progress", zap.Error(err), zap.String("job_id", jobID.String()))
	}

	// Publish to RabbitMQ
	if err := uc.publisher.Publish(ctx, job); err != nil {
		uc.logger.Error("Failed to publish job to queue", zap.Error(err), zap.String("job_id", jobID.String()))
		// The job won't be processed; surface that immediately.
		_ = uc.repo.UpdateStatus(ctx, jobID, domain.StatusFailed)
		_ = uc.tracker.Fail(ctx, jobID, "could not enqueue job")
		_ = uc.store.RemoveUpload(uploadPath)
		return nil, domain.ErrPublishFailed
	}

	metrics.JobsSubmitted.Inc()
	uc.logger.Info("Job submitted successfully",
		zap.String("job_id", jobID.String()),
		zap.String("filename", req.Filename),
	)

	return &domain.SubmitResponse{
		JobID:  jobID,
		Status: string(domain.StatusQueued),
	}, nil
}
