package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/keyhaven/keyhaven/internal/config"
	"github.com/keyhaven/keyhaven/internal/logger"
	"github.com/keyhaven/keyhaven/internal/repository"
	"github.com/keyhaven/keyhaven/internal/service"
	"github.com/keyhaven/keyhaven/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "keyhaven-importer",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	jobID := flag.String("job", "", "Import job ID to operate on")
	ownerID := flag.String("owner", "", "Owner ID the job belongs to")
	runAnalyze := flag.Bool("analyze", false, "Run the analysis phase for the job")
	runExecute := flag.Bool("execute", false, "Execute the job's reviewed decisions")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *jobID == "" || *ownerID == "" {
		appLogger.Fatal("Both -job and -owner are required")
	}
	if !*runAnalyze && !*runExecute {
		appLogger.Fatal("Nothing to do: pass -analyze, -execute, or both")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	appLogger.WithFields(logger.Fields{
		"job":     *jobID,
		"owner":   *ownerID,
		"analyze": *runAnalyze,
		"execute": *runExecute,
	}).Info("Starting importer")

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	contactRepo := repository.NewContactRepository(db)
	jobRepo := repository.NewImportJobRepository(db)
	rowRepo := repository.NewImportRowRepository(db)

	// Initialize file store
	fileStore, err := storage.NewRouter(&storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize file store")
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	if *runAnalyze {
		analyzeService := service.NewAnalyzeService(jobRepo, rowRepo, contactRepo, fileStore, appLogger, &service.AnalyzeConfig{
			BatchSize:  cfg.Import.BatchSize,
			RetryCount: cfg.Import.RetryCount,
			MaxRows:    cfg.Import.MaxRows,
		})

		job, err := analyzeService.Analyze(ctx, *ownerID, *jobID)
		if err != nil {
			appLogger.WithError(err).Fatal("Analysis failed")
		}
		appLogger.WithFields(logger.Fields{
			"status":     string(job.Status),
			"total_rows": job.TotalRows,
		}).Info("Analysis completed")
	}

	if *runExecute {
		executeService := service.NewExecuteService(jobRepo, rowRepo, contactRepo, appLogger, &service.ExecuteConfig{
			RetryCount: cfg.Import.RetryCount,
		})

		job, err := executeService.Execute(ctx, *ownerID, *jobID)
		if err != nil {
			appLogger.WithError(err).Fatal("Execution failed")
		}
		appLogger.WithFields(logger.Fields{
			"status":  string(job.Status),
			"created": job.CreatedCount,
			"updated": job.UpdatedCount,
			"skipped": job.SkippedCount,
		}).Info("Execution completed")
	}
}
