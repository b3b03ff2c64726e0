package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keyhaven/keyhaven/internal/domain"
	"github.com/keyhaven/keyhaven/internal/logger"
	"github.com/keyhaven/keyhaven/internal/repository"
)

// ExecuteService commits approved decisions as durable contact mutations.
// Execution is a one-way staged commit: once a job is processing it runs to
// completion or failure, with no undo.
type ExecuteService struct {
	jobRepo     *repository.ImportJobRepository
	rowRepo     *repository.ImportRowRepository
	contactRepo *repository.ContactRepository
	logger      *logger.Logger
	retryCount  int

	// jobLocks serializes execution per job within this process; the status
	// compare-and-set covers other processes.
	jobLocks sync.Map
}

// ExecuteConfig holds configuration for the execute service.
type ExecuteConfig struct {
	RetryCount int
}

// NewExecuteService creates a new execute service.
// Parameters:
//   - jobRepo: import job repository.
//   - rowRepo: import row repository.
//   - contactRepo: contact repository receiving the mutations.
//   - log: logger instance.
//   - cfg: retry policy.
// Returns:
//   - *ExecuteService: initialized service.
func NewExecuteService(
	jobRepo *repository.ImportJobRepository,
	rowRepo *repository.ImportRowRepository,
	contactRepo *repository.ContactRepository,
	log *logger.Logger,
	cfg *ExecuteConfig,
) *ExecuteService {
	return &ExecuteService{
		jobRepo:     jobRepo,
		rowRepo:     rowRepo,
		contactRepo: contactRepo,
		logger:      log,
		retryCount:  cfg.RetryCount,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *ExecuteService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Execute applies every row's decision for a fully-reviewed job.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: contact owner ID.
//   - jobID: job ID; must be pending_review with zero undecided rows.
// Returns:
//   - *domain.ImportJob: the finalized job (completed or failed).
//   - error: domain.ErrJobNotPendingReview, domain.ErrPendingDecisionsRemain,
//     or a storage failure before processing started.
func (s *ExecuteService) Execute(ctx context.Context, ownerID, jobID string) (*domain.ImportJob, error) {
	ctx = logger.SetJobID(logger.SetOwnerID(ctx, ownerID), jobID)

	lock := s.lockFor(jobID)
	if !lock.TryLock() {
		return nil, fmt.Errorf("job %s is already executing: %w", jobID, domain.ErrJobNotPendingReview)
	}
	defer lock.Unlock()

	job, err := s.jobRepo.GetByID(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusPendingReview {
		return nil, fmt.Errorf("job %s is %s: %w", jobID, job.Status, domain.ErrJobNotPendingReview)
	}

	pending, err := s.rowRepo.CountPendingReview(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, fmt.Errorf("%d rows await review: %w", pending, domain.ErrPendingDecisionsRemain)
	}

	// The transition is the exclusive lease: a concurrent caller that lost
	// the race sees the CAS fail and is rejected here.
	if err := s.jobRepo.Transition(ctx, jobID, domain.JobStatusPendingReview, domain.JobStatusProcessing, nil); err != nil {
		return nil, fmt.Errorf("%w", domain.ErrJobNotPendingReview)
	}

	start := time.Now()
	rows, _, err := s.rowRepo.ListByJob(ctx, jobID, nil, 0, 0)
	if err != nil {
		s.finalize(ctx, jobID, 0, 0, 0, 1, fmt.Sprintf("failed to load rows: %v", err))
		return s.jobRepo.GetByID(ctx, ownerID, jobID)
	}

	var created, updated, skipped, failed int
	var firstErr string

	for i := range rows {
		row := &rows[i]
		if domain.TerminalRowStatus(row.Status) {
			continue
		}

		if err := s.applyRow(ctx, job, row); err != nil {
			failed++
			if firstErr == "" {
				firstErr = fmt.Sprintf("row %d: %v", row.RowNumber, err)
			}
			s.log(ctx).WithFields(logger.Fields{
				logger.FieldRowNumber: row.RowNumber,
			}).WithError(err).Error("Failed to process row")
			if rerr := s.rowRepo.RecordError(ctx, row.ID, err.Error()); rerr != nil {
				s.log(ctx).WithError(rerr).Error("Failed to record row error")
			}
			continue
		}

		switch row.Status {
		case domain.RowStatusImported:
			if row.Decision != nil && *row.Decision == domain.DecisionUpdate {
				updated++
			} else {
				created++
			}
		case domain.RowStatusSkipped:
			skipped++
		}
	}

	errorMessage := ""
	if failed > 0 {
		errorMessage = fmt.Sprintf("%d of %d rows failed; first error: %s", failed, len(rows), firstErr)
	}
	s.finalize(ctx, jobID, created, updated, skipped, failed, errorMessage)

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		"created":              created,
		"updated":              updated,
		"skipped":              skipped,
		"failed":               failed,
	}).Info(ctx, "Execution finished: job=%s", jobID)

	return s.jobRepo.GetByID(ctx, ownerID, jobID)
}

// lockFor returns the per-job mutex, creating it on first use.
func (s *ExecuteService) lockFor(jobID string) *sync.Mutex {
	actual, _ := s.jobLocks.LoadOrStore(jobID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// finalize moves the job to its terminal status with counters attached.
func (s *ExecuteService) finalize(ctx context.Context, jobID string, created, updated, skipped, failed int, errorMessage string) {
	extra := map[string]interface{}{
		"created_count": created,
		"updated_count": updated,
		"skipped_count": skipped,
	}
	target := domain.JobStatusCompleted
	if failed > 0 {
		target = domain.JobStatusFailed
		extra["error_message"] = errorMessage
	}
	if err := s.jobRepo.Transition(ctx, jobID, domain.JobStatusProcessing, target, extra); err != nil {
		s.log(ctx).WithError(err).Error("Failed to finalize job")
	}
}

// applyRow executes one row's decision and marks the row terminal. The row
// struct is updated in place so the caller can attribute counters.
func (s *ExecuteService) applyRow(ctx context.Context, job *domain.ImportJob, row *domain.ImportRow) error {
	switch action(row) {
	case domain.DecisionCreate:
		return s.createContact(ctx, job, row)
	case domain.DecisionUpdate:
		return s.updateContact(ctx, row)
	default:
		if err := withRetry(ctx, s.retryCount, func() error {
			return s.rowRepo.MarkResult(ctx, row.ID, domain.RowStatusSkipped, nil)
		}); err != nil {
			return err
		}
		row.Status = domain.RowStatusSkipped
		return nil
	}
}

// action resolves a row's effective decision. New rows default to create;
// staged rows carry an explicit decision by the time execution starts, and
// an undecided duplicate falls back to skip as a safety net.
func action(row *domain.ImportRow) domain.RowDecision {
	if row.Decision != nil {
		return *row.Decision
	}
	if row.Status == domain.RowStatusNew {
		return domain.DecisionCreate
	}
	return domain.DecisionSkip
}

// createContact inserts a brand-new contact built from the row's raw fields.
func (s *ExecuteService) createContact(ctx context.Context, job *domain.ImportJob, row *domain.ImportRow) error {
	contact := contactFromRow(job.OwnerID, row.RawFields)

	var inserted bool
	if err := withRetry(ctx, s.retryCount, func() error {
		var err error
		inserted, err = s.contactRepo.CreateIfAbsent(ctx, contact)
		return err
	}); err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	if !inserted {
		// A concurrent import (or an earlier row) won the email slot.
		return fmt.Errorf("contact with email %q already exists", contact.Email)
	}

	if err := withRetry(ctx, s.retryCount, func() error {
		return s.rowRepo.MarkResult(ctx, row.ID, domain.RowStatusImported, &contact.ID)
	}); err != nil {
		return err
	}
	row.Status = domain.RowStatusImported
	return nil
}

// updateContact applies only the authorized overwrite fields onto the
// matched contact. Fields outside overwriteFields are never written.
func (s *ExecuteService) updateContact(ctx context.Context, row *domain.ImportRow) error {
	if row.MatchedContactID == nil {
		return fmt.Errorf("row has no matched contact")
	}

	updates := make(map[string]interface{})
	for _, field := range row.OverwriteFields {
		if field == domain.AmbiguousMarker {
			continue
		}
		value := row.RawFields.Get(field)
		updates[field] = value
		if field == domain.FieldPhone {
			updates["phone_norm"] = NormalizePhone(value)
		}
	}

	if len(updates) > 0 {
		if err := withRetry(ctx, s.retryCount, func() error {
			return s.contactRepo.UpdateFields(ctx, *row.MatchedContactID, updates)
		}); err != nil {
			return fmt.Errorf("failed to update contact: %w", err)
		}
	}

	if err := withRetry(ctx, s.retryCount, func() error {
		return s.rowRepo.MarkResult(ctx, row.ID, domain.RowStatusImported, nil)
	}); err != nil {
		return err
	}
	row.Status = domain.RowStatusImported
	return nil
}

// contactFromRow builds a contact record, normalized identity included, from
// a row's raw fields.
func contactFromRow(ownerID string, fields domain.RawFields) *domain.Contact {
	contact := &domain.Contact{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	for _, field := range []string{
		domain.FieldFirstName, domain.FieldLastName, domain.FieldEmail,
		domain.FieldPhone, domain.FieldCompany, domain.FieldAddress,
	} {
		contact.SetFieldValue(field, fields.Get(field))
	}
	contact.EmailNorm = NormalizeEmail(contact.Email)
	contact.PhoneNorm = NormalizePhone(contact.Phone)
	return contact
}
