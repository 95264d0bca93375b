package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/artifacts"
	"github.com/FaryzK/filesplittingservice/internal/domain"
	"github.com/FaryzK/filesplittingservice/internal/usecase"
)

// JobHandler handles HTTP requests for split jobs and their artifacts.
type JobHandler struct {
	submitUC   *usecase.SubmitJobUsecase
	snapshotUC *usecase.GetSnapshotUsecase
	store      *artifacts.Store
	logger     *zap.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(submitUC *usecase.SubmitJobUsecase, snapshotUC *usecase.GetSnapshotUsecase, store *artifacts.Store, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		submitUC:   submitUC,
		snapshotUC: snapshotUC,
		store:      store,
		logger:     logger,
	}
}

// Submit handles POST /api/v1/jobs
func (h *JobHandler) Submit(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload"})
		return
	}
	defer file.Close()

	req := &usecase.UploadRequest{
		Filename: header.Filename,
		Content:  file,
		Size:     header.Size,
	}

	resp, err := h.submitUC.Execute(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotPDF):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrEmptyUpload):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrPayloadTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrPublishFailed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
		default:
			h.logger.Error("Submit job failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// GetByID handles GET /api/v1/jobs/:id
func (h *JobHandler) GetByID(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID format"})
		return
	}

	snap, err := h.snapshotUC.Execute(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		h.logger.Error("Get snapshot failed", zap.Error(err), zap.String("job_id", idStr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, snap)
}

// Download handles GET /api/v1/artifacts/:filename
func (h *JobHandler) Download(c *gin.Context) {
	filename := c.Param("filename")

	path, ok := h.store.OutputPath(filename)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Artifact not found"})
		return
	}

	c.FileAttachment(path, filename)
}
