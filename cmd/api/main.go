package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keyhaven/keyhaven/internal/api"
	"github.com/keyhaven/keyhaven/internal/config"
	"github.com/keyhaven/keyhaven/internal/logger"
	"github.com/keyhaven/keyhaven/internal/repository"
	"github.com/keyhaven/keyhaven/internal/service"
	"github.com/keyhaven/keyhaven/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize repositories
	contactRepo := repository.NewContactRepository(db)
	jobRepo := repository.NewImportJobRepository(db)
	rowRepo := repository.NewImportRowRepository(db)

	// Initialize file store (S3/MinIO plus http and file URLs)
	fileStore, err := storage.NewRouter(&storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
	})
	if err != nil {
		appLogger.Fatalf("Failed to initialize file store: %v", err)
	}

	// Initialize services
	importService := service.NewImportService(jobRepo, rowRepo, contactRepo, appLogger)
	analyzeService := service.NewAnalyzeService(jobRepo, rowRepo, contactRepo, fileStore, appLogger, &service.AnalyzeConfig{
		BatchSize:  cfg.Import.BatchSize,
		RetryCount: cfg.Import.RetryCount,
		MaxRows:    cfg.Import.MaxRows,
	})
	reviewService := service.NewReviewService(jobRepo, rowRepo, appLogger)
	executeService := service.NewExecuteService(jobRepo, rowRepo, contactRepo, appLogger, &service.ExecuteConfig{
		RetryCount: cfg.Import.RetryCount,
	})
	statsService := service.NewStatsService(jobRepo, contactRepo, appLogger)

	// Setup router
	router := api.SetupRouter(importService, analyzeService, reviewService, executeService, statsService, cfg, appLogger)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.Infof("Starting API server on port %d (mode=%s)", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("Server exited")
}
