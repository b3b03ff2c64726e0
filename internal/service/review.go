package service

import (
	"context"
	"fmt"

	"github.com/keyhaven/keyhaven/internal/domain"
	"github.com/keyhaven/keyhaven/internal/logger"
	"github.com/keyhaven/keyhaven/internal/repository"
)

// ReviewService records and validates reviewer decisions for staged rows.
// Decisions never change row status; status only moves at execution.
type ReviewService struct {
	jobRepo *repository.ImportJobRepository
	rowRepo *repository.ImportRowRepository
	logger  *logger.Logger
}

// NewReviewService creates a new review service.
// Parameters:
//   - jobRepo: import job repository.
//   - rowRepo: import row repository.
//   - log: logger instance.
// Returns:
//   - *ReviewService: initialized service.
func NewReviewService(
	jobRepo *repository.ImportJobRepository,
	rowRepo *repository.ImportRowRepository,
	log *logger.Logger,
) *ReviewService {
	return &ReviewService{
		jobRepo: jobRepo,
		rowRepo: rowRepo,
		logger:  log,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *ReviewService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// UpdateRowDecision records one reviewer decision. Re-submitting the same
// decision is a no-op beyond the write, so the call is idempotent.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: contact owner ID.
//   - rowID: row ID.
//   - decision: create, update, or skip.
//   - overwriteFields: for update, the conflict fields authorized for
//     overwrite; must be empty for create and skip.
// Returns:
//   - error: domain.ErrRowNotAwaitingReview if the row has nothing to decide
//     or its job is not pending_review; domain.ErrInvalidDecision or
//     domain.ErrOverwriteNotSubset on bad arguments.
func (s *ReviewService) UpdateRowDecision(ctx context.Context, ownerID, rowID string, decision domain.RowDecision, overwriteFields []string) error {
	row, err := s.rowRepo.GetByID(ctx, rowID)
	if err != nil {
		return err
	}

	job, err := s.jobRepo.GetByID(ctx, ownerID, row.JobID)
	if err != nil {
		return err
	}

	if err := validateDecision(job, row, decision, overwriteFields); err != nil {
		return err
	}

	if err := s.rowRepo.UpdateDecision(ctx, rowID, decision, overwriteFields); err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID:     job.ID,
		logger.FieldRowNumber: row.RowNumber,
		"decision":            string(decision),
	}).Info("Row decision recorded")

	return nil
}

// validateDecision checks one decision against the row and job state.
func validateDecision(job *domain.ImportJob, row *domain.ImportRow, decision domain.RowDecision, overwriteFields []string) error {
	if !domain.ValidRowDecision(decision) {
		return fmt.Errorf("unknown decision %q: %w", decision, domain.ErrInvalidDecision)
	}
	if job.Status != domain.JobStatusPendingReview {
		return fmt.Errorf("job %s is %s: %w", job.ID, job.Status, domain.ErrRowNotAwaitingReview)
	}
	if row.Status != domain.RowStatusDuplicate && row.Status != domain.RowStatusConflict {
		return fmt.Errorf("row %d is %s: %w", row.RowNumber, row.Status, domain.ErrRowNotAwaitingReview)
	}

	switch decision {
	case domain.DecisionSkip, domain.DecisionCreate:
		if len(overwriteFields) > 0 {
			return fmt.Errorf("decision %s takes no overwrite fields: %w", decision, domain.ErrInvalidDecision)
		}
	case domain.DecisionUpdate:
		for _, field := range overwriteFields {
			if field == domain.AmbiguousMarker {
				return fmt.Errorf("%q is not an overwritable field: %w", field, domain.ErrOverwriteNotSubset)
			}
			if !row.ConflictFields.Contains(field) {
				return fmt.Errorf("field %q not in conflict fields: %w", field, domain.ErrOverwriteNotSubset)
			}
		}
	}
	return nil
}

// BulkDecisionInput carries the parameters of a bulk decision.
type BulkDecisionInput struct {
	// TargetStatus selects the rows: new, duplicate, or conflict.
	TargetStatus domain.RowStatus
	// Decision applied to every selected row.
	Decision domain.RowDecision
	// OverwriteAll includes rows that already carry a decision, and for an
	// update decision authorizes overwriting every conflict field.
	OverwriteAll bool
}

// BulkUpdateDecision applies one decision to every row of a job currently in
// the target status. The full batch is computed and validated before any row
// is written, and the writes land in a single transaction, so an invalid row
// never leaves the batch half-applied.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: contact owner ID.
//   - jobID: job ID; must be pending_review.
//   - input: target status, decision, and overwrite policy.
// Returns:
//   - int: number of rows the decision was applied to.
//   - error: validation or storage failure; zero rows written on error.
func (s *ReviewService) BulkUpdateDecision(ctx context.Context, ownerID, jobID string, input BulkDecisionInput) (int, error) {
	job, err := s.jobRepo.GetByID(ctx, ownerID, jobID)
	if err != nil {
		return 0, err
	}
	if job.Status != domain.JobStatusPendingReview {
		return 0, fmt.Errorf("job %s is %s: %w", job.ID, job.Status, domain.ErrRowNotAwaitingReview)
	}
	if !domain.ValidRowDecision(input.Decision) {
		return 0, fmt.Errorf("unknown decision %q: %w", input.Decision, domain.ErrInvalidDecision)
	}

	switch input.TargetStatus {
	case domain.RowStatusNew, domain.RowStatusDuplicate, domain.RowStatusConflict:
	default:
		return 0, fmt.Errorf("cannot bulk-decide rows in status %q: %w", input.TargetStatus, domain.ErrInvalidDecision)
	}
	if input.Decision == domain.DecisionUpdate && input.TargetStatus == domain.RowStatusNew {
		return 0, fmt.Errorf("new rows have no matched contact to update: %w", domain.ErrInvalidDecision)
	}

	rows, _, err := s.rowRepo.ListByJob(ctx, jobID, []domain.RowStatus{input.TargetStatus}, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list rows: %w", err)
	}

	// Build the full set of intended updates first, then apply as one batch.
	updates := make([]repository.RowDecisionUpdate, 0, len(rows))
	for _, row := range rows {
		if row.Decision != nil && !input.OverwriteAll {
			continue
		}
		var overwrite domain.StringList
		if input.Decision == domain.DecisionUpdate && input.OverwriteAll {
			for _, field := range row.ConflictFields {
				if field != domain.AmbiguousMarker {
					overwrite = append(overwrite, field)
				}
			}
		}
		updates = append(updates, repository.RowDecisionUpdate{
			RowID:           row.ID,
			Decision:        input.Decision,
			OverwriteFields: overwrite,
		})
	}

	if err := s.rowRepo.ApplyDecisions(ctx, updates); err != nil {
		return 0, fmt.Errorf("failed to apply bulk decision: %w", err)
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID: jobID,
		logger.FieldCount: len(updates),
		"target_status":   string(input.TargetStatus),
		"decision":        string(input.Decision),
	}).Info("Bulk decision applied")

	return len(updates), nil
}

// GetRowsNeedingReview retrieves the rows still awaiting a decision, in
// row-number order.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: contact owner ID.
//   - jobID: job ID.
// Returns:
//   - []domain.ImportRow: rows with status duplicate/conflict and no decision.
//   - error: domain.ErrNotFound if the job is absent.
func (s *ReviewService) GetRowsNeedingReview(ctx context.Context, ownerID, jobID string) ([]domain.ImportRow, error) {
	if _, err := s.jobRepo.GetByID(ctx, ownerID, jobID); err != nil {
		return nil, err
	}
	return s.rowRepo.ListNeedingReview(ctx, jobID)
}

// CountPendingReview counts the rows still awaiting a decision. Execution is
// gated on this being zero.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: contact owner ID.
//   - jobID: job ID.
// Returns:
//   - int64: number of undecided duplicate/conflict rows.
//   - error: domain.ErrNotFound if the job is absent.
func (s *ReviewService) CountPendingReview(ctx context.Context, ownerID, jobID string) (int64, error) {
	if _, err := s.jobRepo.GetByID(ctx, ownerID, jobID); err != nil {
		return 0, err
	}
	return s.rowRepo.CountPendingReview(ctx, jobID)
}
