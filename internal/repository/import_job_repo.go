package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/keyhaven/keyhaven/internal/domain"
	"gorm.io/gorm"
)

// ImportJobRepository handles import job persistence, including the guarded
// status transitions that implement the job state machine.
type ImportJobRepository struct {
	db *gorm.DB
}

// NewImportJobRepository creates a new ImportJobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ImportJobRepository: repository instance bound to db.
func NewImportJobRepository(db *gorm.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db}
}

// Create inserts a new import job record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: job record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *ImportJobRepository) Create(ctx context.Context, job *domain.ImportJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves an import job by ID, scoped to its owner.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: job owner ID.
//   - id: job ID.
// Returns:
//   - *domain.ImportJob: job record if found.
//   - error: domain.ErrNotFound if absent, other errors otherwise.
func (r *ImportJobRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.ImportJob, error) {
	var job domain.ImportJob
	err := r.db.WithContext(ctx).First(&job, "owner_id = ? AND id = ?", ownerID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("import job %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &job, nil
}

// List retrieves jobs for an owner, optionally filtered by status set.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: job owner ID.
//   - statuses: status filter; empty means all.
// Returns:
//   - []domain.ImportJob: matching jobs, newest first.
//   - error: non-nil if the query fails.
func (r *ImportJobRepository) List(ctx context.Context, ownerID string, statuses []domain.JobStatus) ([]domain.ImportJob, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var jobs []domain.ImportJob
	if err := query.Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// Transition moves a job along one edge of the status transition table.
// The write is a compare-and-set on the current status, so two concurrent
// callers cannot both take the same edge: exactly one sees RowsAffected == 1.
// Extra column updates (counters, error message) ride on the same statement.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobID: job ID.
//   - from: expected current status.
//   - to: requested next status.
//   - extra: additional column updates applied with the transition; may be nil.
// Returns:
//   - error: domain.ErrInvalidStateTransition if the edge is illegal or the
//     job was not in the expected status; other errors on storage failure.
func (r *ImportJobRepository) Transition(ctx context.Context, jobID string, from, to domain.JobStatus, extra map[string]interface{}) error {
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, domain.ErrInvalidStateTransition)
	}

	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}

	result := r.db.WithContext(ctx).Model(&domain.ImportJob{}).
		Where("id = ? AND status = ?", jobID, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("job %s not in status %s: %w", jobID, from, domain.ErrInvalidStateTransition)
	}
	return nil
}

// UpdateCounters writes the result counters for a job.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobID: job ID.
//   - created, updated, skipped: counter values.
// Returns:
//   - error: non-nil if the update fails.
func (r *ImportJobRepository) UpdateCounters(ctx context.Context, jobID string, created, updated, skipped int) error {
	return r.db.WithContext(ctx).Model(&domain.ImportJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"created_count": created,
			"updated_count": updated,
			"skipped_count": skipped,
		}).Error
}

// Delete removes a job and cascades to its rows in one transaction.
// Jobs that are mid-execution cannot be deleted.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: job owner ID.
//   - id: job ID.
// Returns:
//   - error: domain.ErrNotFound if absent, domain.ErrJobProcessing if the job
//     is executing, other errors on storage failure.
func (r *ImportJobRepository) Delete(ctx context.Context, ownerID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job domain.ImportJob
		if err := tx.First(&job, "owner_id = ? AND id = ?", ownerID, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("import job %s: %w", id, domain.ErrNotFound)
			}
			return err
		}
		if job.Status == domain.JobStatusProcessing {
			return fmt.Errorf("import job %s: %w", id, domain.ErrJobProcessing)
		}
		if err := tx.Delete(&domain.ImportRow{}, "job_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.ImportJob{}, "id = ?", id).Error
	})
}

// statusCount is a scan target for the grouped stats query.
type statusCount struct {
	Status domain.JobStatus
	Count  int64
}

// CountByStatus returns job counts grouped by status for an owner.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: job owner ID.
// Returns:
//   - map[domain.JobStatus]int64: count per status; absent statuses omitted.
//   - error: non-nil if the query fails.
func (r *ImportJobRepository) CountByStatus(ctx context.Context, ownerID string) (map[domain.JobStatus]int64, error) {
	var rows []statusCount
	if err := r.db.WithContext(ctx).Model(&domain.ImportJob{}).
		Select("status, COUNT(*) as count").
		Where("owner_id = ?", ownerID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[domain.JobStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// counterTotals is a scan target for the summed counter query.
type counterTotals struct {
	Created int64
	Updated int64
	Skipped int64
}

// SumCounters returns the summed created/updated/skipped counters across all
// jobs for an owner.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: job owner ID.
// Returns:
//   - created, updated, skipped: summed counter values.
//   - error: non-nil if the query fails.
func (r *ImportJobRepository) SumCounters(ctx context.Context, ownerID string) (int64, int64, int64, error) {
	var totals counterTotals
	if err := r.db.WithContext(ctx).Model(&domain.ImportJob{}).
		Select("COALESCE(SUM(created_count),0) as created, COALESCE(SUM(updated_count),0) as updated, COALESCE(SUM(skipped_count),0) as skipped").
		Where("owner_id = ?", ownerID).
		Scan(&totals).Error; err != nil {
		return 0, 0, 0, err
	}
	return totals.Created, totals.Updated, totals.Skipped, nil
}
