package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/artifacts"
	"github.com/FaryzK/filesplittingservice/internal/delivery/http/middleware"
	"github.com/FaryzK/filesplittingservice/internal/training"
	"github.com/FaryzK/filesplittingservice/internal/usecase"
)

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(
	submitUC *usecase.SubmitJobUsecase,
	snapshotUC *usecase.GetSnapshotUsecase,
	store *artifacts.Store,
	index *training.Index,
	logger *zap.Logger,
	rateLimitPerMin int,
	maxUploadBytes int64,
) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(logger))

	// Metrics endpoint (no rate limiting)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Health check (no rate limiting)
		healthHandler := NewHealthHandler(logger)
		v1.GET("/health", healthHandler.Health)

		// Jobs (uploads are rate limited and size capped)
		jobHandler := NewJobHandler(submitUC, snapshotUC, store, logger)
		v1.POST("/jobs", middleware.RateLimiter(rateLimitPerMin), middleware.BodySizeLimit(maxUploadBytes), jobHandler.Submit)
		v1.GET("/jobs/:id", jobHandler.GetByID)

		// WebSocket for real-time updates
		wsHandler := NewWebSocketHandler(snapshotUC, logger)
		v1.GET("/jobs/:id/stream", wsHandler.Stream)

		// Split artifacts
		v1.GET("/artifacts/:filename", jobHandler.Download)

		// Training index
		trainingHandler := NewTrainingHandler(index, logger)
		v1.GET("/training/documents", trainingHandler.List)
		v1.GET("/training/documents/:filename/preview", trainingHandler.Preview)
	}

	return router
}
