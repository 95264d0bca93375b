package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/artifacts"
	"github.com/FaryzK/filesplittingservice/internal/config"
	handler "github.com/FaryzK/filesplittingservice/internal/delivery/http"
	"github.com/FaryzK/filesplittingservice/internal/progress"
	"github.com/FaryzK/filesplittingservice/internal/publisher"
	"github.com/FaryzK/filesplittingservice/internal/repository/postgres"
	"github.com/FaryzK/filesplittingservice/internal/training"
	"github.com/FaryzK/filesplittingservice/internal/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting split service API server")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Connect to PostgreSQL
	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping PostgreSQL", zap.Error(err))
	}
	logger.Info("Connected to PostgreSQL")

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to parse Redis URL", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to ping Redis", zap.Error(err))
	}
	logger.Info("Connected to Redis")

	// Initialize RabbitMQ publisher
	pub, err := publisher.NewRabbitMQPublisher(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize RabbitMQ publisher", zap.Error(err))
	}
	defer pub.Close()
	logger.Info("Connected to RabbitMQ")

	// Initialize storage and shared state
	store, err := artifacts.NewStore(cfg.Storage.UploadDir, cfg.Storage.OutputDir)
	if err != nil {
		logger.Fatal("Failed to initialize artifact store", zap.Error(err))
	}
	index := training.NewIndex(cfg.Storage.TrainingIndexPath, logger)
	tracker := progress.NewRedisTracker(rdb)

	// Initialize repository and use cases
	jobRepo := postgres.NewJobRepository(dbPool)
	submitUC := usecase.NewSubmitJobUsecase(jobRepo, pub, tracker, store, logger)
	snapshotUC := usecase.NewGetSnapshotUsecase(jobRepo, tracker, logger)

	// Initialize router
	router := handler.NewRouter(
		submitUC,
		snapshotUC,
		store,
		index,
		logger,
		cfg.Server.RateLimit,
		cfg.Server.MaxUploadMB<<20,
	)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("API server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}
