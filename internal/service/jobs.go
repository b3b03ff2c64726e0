package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/keyhaven/keyhaven/internal/domain"
	"github.com/keyhaven/keyhaven/internal/logger"
	"github.com/keyhaven/keyhaven/internal/repository"
)

// ImportService owns the import job lifecycle outside of analysis and
// execution: registration, listing, row queries, and deletion.
type ImportService struct {
	jobRepo     *repository.ImportJobRepository
	rowRepo     *repository.ImportRowRepository
	contactRepo *repository.ContactRepository
	logger      *logger.Logger
}

// NewImportService creates a new import service.
// Parameters:
//   - jobRepo: import job repository.
//   - rowRepo: import row repository.
//   - contactRepo: contact repository, used for row hydration.
//   - log: logger instance.
// Returns:
//   - *ImportService: initialized service.
func NewImportService(
	jobRepo *repository.ImportJobRepository,
	rowRepo *repository.ImportRowRepository,
	contactRepo *repository.ContactRepository,
	log *logger.Logger,
) *ImportService {
	return &ImportService{
		jobRepo:     jobRepo,
		rowRepo:     rowRepo,
		contactRepo: contactRepo,
		logger:      log,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *ImportService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// CreateJobInput carries the upload registration parameters.
type CreateJobInput struct {
	Mode          domain.ImportMode
	FileName      string
	FileURL       string
	FileSizeBytes int64
}

// CreateJob registers an uploaded file as a pending import job.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: contact owner ID.
//   - input: upload registration parameters.
// Returns:
//   - *domain.ImportJob: the created job in pending status.
//   - error: non-nil on invalid mode or storage failure.
func (s *ImportService) CreateJob(ctx context.Context, ownerID string, input CreateJobInput) (*domain.ImportJob, error) {
	mode := input.Mode
	if mode == "" {
		mode = domain.ImportModeBalanced
	}
	if !domain.ValidImportMode(mode) {
		return nil, fmt.Errorf("unknown import mode %q: %w", input.Mode, domain.ErrInvalidDecision)
	}
	if input.FileName == "" || input.FileURL == "" {
		return nil, fmt.Errorf("file name and file url are required: %w", domain.ErrInvalidDecision)
	}

	job := &domain.ImportJob{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		Mode:          mode,
		FileName:      input.FileName,
		FileURL:       input.FileURL,
		FileSizeBytes: input.FileSizeBytes,
		Status:        domain.JobStatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID:   job.ID,
		logger.FieldOwnerID: ownerID,
		"file_name":         job.FileName,
		"mode":              string(job.Mode),
	}).Info("Import job created")

	return job, nil
}

// ListJobs retrieves jobs for an owner, optionally filtered by status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: contact owner ID.
//   - statuses: status filter; empty means all.
// Returns:
//   - []domain.ImportJob: matching jobs, newest first.
//   - error: non-nil if the query fails.
func (s *ImportService) ListJobs(ctx context.Context, ownerID string, statuses []domain.JobStatus) ([]domain.ImportJob, error) {
	return s.jobRepo.List(ctx, ownerID, statuses)
}

// GetJob retrieves one job by ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: contact owner ID.
//   - jobID: job ID.
// Returns:
//   - *domain.ImportJob: job record.
//   - error: domain.ErrNotFound if absent.
func (s *ImportService) GetJob(ctx context.Context, ownerID, jobID string) (*domain.ImportJob, error) {
	return s.jobRepo.GetByID(ctx, ownerID, jobID)
}

// DeleteJob removes a job and its rows. Jobs that are mid-execution are
// refused; everything else, including completed and failed jobs, may go.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: contact owner ID.
//   - jobID: job ID.
// Returns:
//   - error: domain.ErrNotFound, domain.ErrJobProcessing, or storage failure.
func (s *ImportService) DeleteJob(ctx context.Context, ownerID, jobID string) error {
	if err := s.jobRepo.Delete(ctx, ownerID, jobID); err != nil {
		return err
	}
	s.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID:   jobID,
		logger.FieldOwnerID: ownerID,
	}).Info("Import job deleted")
	return nil
}

// RowPage is one page of import rows.
type RowPage struct {
	Rows   []domain.ImportRow `json:"rows"`
	Total  int64              `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// GetRows retrieves a paginated slice of a job's rows, optionally hydrating
// each row's matched contact.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: contact owner ID.
//   - jobID: job ID.
//   - statuses: row status filter; empty means all.
//   - limit, offset: pagination window.
//   - hydrate: attach matched contact records when true.
// Returns:
//   - *RowPage: rows in row-number order plus the unpaginated total.
//   - error: domain.ErrNotFound if the job is absent.
func (s *ImportService) GetRows(ctx context.Context, ownerID, jobID string, statuses []domain.RowStatus, limit, offset int, hydrate bool) (*RowPage, error) {
	if _, err := s.jobRepo.GetByID(ctx, ownerID, jobID); err != nil {
		return nil, err
	}

	rows, total, err := s.rowRepo.ListByJob(ctx, jobID, statuses, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list rows: %w", err)
	}

	if hydrate {
		if err := s.hydrateContacts(ctx, rows); err != nil {
			return nil, err
		}
	}

	return &RowPage{Rows: rows, Total: total, Limit: limit, Offset: offset}, nil
}

// hydrateContacts attaches matched contact records to rows in place.
func (s *ImportService) hydrateContacts(ctx context.Context, rows []domain.ImportRow) error {
	ids := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.MatchedContactID != nil && !seen[*row.MatchedContactID] {
			seen[*row.MatchedContactID] = true
			ids = append(ids, *row.MatchedContactID)
		}
	}

	contacts, err := s.contactRepo.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]*domain.Contact, len(contacts))
	for i := range contacts {
		byID[contacts[i].ID] = &contacts[i]
	}

	for i := range rows {
		if rows[i].MatchedContactID != nil {
			rows[i].MatchedContact = byID[*rows[i].MatchedContactID]
		}
	}
	return nil
}
