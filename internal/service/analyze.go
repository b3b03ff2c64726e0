package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/keyhaven/keyhaven/internal/domain"
	"github.com/keyhaven/keyhaven/internal/logger"
	"github.com/keyhaven/keyhaven/internal/repository"
	"github.com/keyhaven/keyhaven/internal/spreadsheet"
	"github.com/keyhaven/keyhaven/internal/storage"
)

// AnalyzeService runs the analysis phase of an import job: fetch the file,
// parse it into rows, classify every row against the owner's contacts, and
// stage the results for review.
type AnalyzeService struct {
	jobRepo     *repository.ImportJobRepository
	rowRepo     *repository.ImportRowRepository
	contactRepo *repository.ContactRepository
	files       storage.FileStore
	logger      *logger.Logger
	batchSize   int
	retryCount  int
	maxRows     int
}

// AnalyzeConfig holds configuration for the analyze service.
type AnalyzeConfig struct {
	BatchSize  int
	RetryCount int
	MaxRows    int
}

// NewAnalyzeService creates a new analyze service.
// Parameters:
//   - jobRepo: import job repository.
//   - rowRepo: import row repository.
//   - contactRepo: contact repository for the match snapshot.
//   - files: file store the uploaded spreadsheet is fetched from.
//   - log: logger instance.
//   - cfg: batch size, retry count, and row limit.
// Returns:
//   - *AnalyzeService: initialized service.
func NewAnalyzeService(
	jobRepo *repository.ImportJobRepository,
	rowRepo *repository.ImportRowRepository,
	contactRepo *repository.ContactRepository,
	files storage.FileStore,
	log *logger.Logger,
	cfg *AnalyzeConfig,
) *AnalyzeService {
	return &AnalyzeService{
		jobRepo:     jobRepo,
		rowRepo:     rowRepo,
		contactRepo: contactRepo,
		files:       files,
		logger:      log,
		batchSize:   cfg.BatchSize,
		retryCount:  cfg.RetryCount,
		maxRows:     cfg.MaxRows,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *AnalyzeService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Analyze runs matching for a pending job and stages its rows for review.
// Fatal fetch/parse errors fail the job without creating rows.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: contact owner ID.
//   - jobID: job ID; must be in pending status.
// Returns:
//   - *domain.ImportJob: the job in pending_review (or failed) status.
//   - error: domain.ErrNotFound, domain.ErrInvalidStateTransition, or the
//     fatal analysis error.
func (s *AnalyzeService) Analyze(ctx context.Context, ownerID, jobID string) (*domain.ImportJob, error) {
	ctx = logger.SetJobID(logger.SetOwnerID(ctx, ownerID), jobID)

	job, err := s.jobRepo.GetByID(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}

	if err := s.jobRepo.Transition(ctx, jobID, domain.JobStatusPending, domain.JobStatusAnalyzing, nil); err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := s.stageRows(ctx, job)
	if err != nil {
		s.log(ctx).WithError(err).Error("Analysis failed")
		if terr := s.jobRepo.Transition(ctx, jobID, domain.JobStatusAnalyzing, domain.JobStatusFailed,
			map[string]interface{}{"error_message": err.Error()}); terr != nil {
			s.log(ctx).WithError(terr).Error("Failed to mark job failed")
		}
		return nil, err
	}

	if err := s.jobRepo.Transition(ctx, jobID, domain.JobStatusAnalyzing, domain.JobStatusPendingReview,
		map[string]interface{}{"total_rows": len(rows)}); err != nil {
		return nil, err
	}

	logger.With(logger.Fields{
		logger.FieldCount:      len(rows),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info(ctx, "Analysis completed: job=%s", jobID)

	return s.jobRepo.GetByID(ctx, ownerID, jobID)
}

// stageRows fetches, parses, classifies, and persists the job's rows.
func (s *AnalyzeService) stageRows(ctx context.Context, job *domain.ImportJob) ([]domain.ImportRow, error) {
	reader, err := s.files.Fetch(ctx, job.FileURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch import file: %w", err)
	}
	defer reader.Close()

	parsed, err := spreadsheet.Parse(reader, job.FileName, s.maxRows)
	if err != nil {
		if errors.Is(err, spreadsheet.ErrUnsupportedFormat) || errors.Is(err, spreadsheet.ErrNoHeader) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to parse %s: %w", job.FileName, err)
	}

	contacts, err := s.contactRepo.ListByOwner(ctx, job.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot contacts: %w", err)
	}
	index := NewContactIndex(contacts)

	s.log(ctx).WithFields(logger.Fields{
		"rows":     len(parsed),
		"contacts": index.Size(),
		"mode":     string(job.Mode),
	}).Info("Classifying import rows")

	now := time.Now()
	rows := make([]domain.ImportRow, 0, len(parsed))
	for _, p := range parsed {
		result := MatchRow(p.Fields, index, job.Mode)
		rows = append(rows, domain.ImportRow{
			ID:               uuid.New().String(),
			JobID:            job.ID,
			RowNumber:        p.Number,
			RawFields:        p.Fields,
			Status:           result.Status,
			MatchedContactID: result.MatchedContactID,
			ConflictFields:   result.ConflictFields,
			Decision:         result.Decision,
			OverwriteFields:  result.OverwriteFields,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	// Batched insert with bounded retries; rows are not yet committed, so a
	// persistent storage failure fails the whole analysis.
	if err := withRetry(ctx, s.retryCount, func() error {
		return s.rowRepo.CreateBatch(ctx, rows, s.batchSize)
	}); err != nil {
		return nil, fmt.Errorf("failed to stage import rows: %w", err)
	}

	return rows, nil
}
