package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/domain"
	"github.com/FaryzK/filesplittingservice/internal/training"
)

// TrainingHandler serves the trained-document listing and previews.
type TrainingHandler struct {
	index  *training.Index
	logger *zap.Logger
}

// NewTrainingHandler creates a new TrainingHandler.
func NewTrainingHandler(index *training.Index, logger *zap.Logger) *TrainingHandler {
	return &TrainingHandler{index: index, logger: logger}
}

// List handles GET /api/v1/training/documents
func (h *TrainingHandler) List(c *gin.Context) {
	docs, err := h.index.Documents()
	if err != nil {
		h.logger.Error("Failed to list trained documents", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trained_documents": docs,
		"count":             len(docs),
	})
}

// Preview handles GET /api/v1/training/documents/:filename/preview
func (h *TrainingHandler) Preview(c *gin.Context) {
	filename := c.Param("filename")

	preview, err := h.index.PreviewFor(filename)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDocumentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found in training data"})
		case errors.Is(err, domain.ErrPreviewUnavailable):
			c.JSON(http.StatusNotFound, gin.H{"error": "Preview images not found for this document"})
		default:
			h.logger.Error("Failed to load preview", zap.Error(err), zap.String("filename", filename))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	original, err := encodeImage(preview.OriginalImage)
	if err != nil {
		h.logger.Error("Failed to read preview image", zap.Error(err), zap.String("path", preview.OriginalImage))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	cropped, err := encodeImage(preview.CroppedImage)
	if err != nil {
		h.logger.Error("Failed to read preview image", zap.Error(err), zap.String("path", preview.CroppedImage))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"filename":       preview.Filename,
		"bbox":           preview.BBox,
		"original_image": original,
		"cropped_image":  cropped,
	})
}

func encodeImage(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
