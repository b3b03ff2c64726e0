package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/keyhaven/keyhaven/internal/domain"
	"gorm.io/gorm"
)

// ImportRowRepository handles import row persistence.
type ImportRowRepository struct {
	db *gorm.DB
}

// NewImportRowRepository creates a new ImportRowRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ImportRowRepository: repository instance bound to db.
func NewImportRowRepository(db *gorm.DB) *ImportRowRepository {
	return &ImportRowRepository{db: db}
}

// CreateBatch inserts rows in fixed-size batches, preserving slice order.
// The batches run inside one transaction so a mid-way failure leaves nothing
// behind and the whole insert is safely retryable.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rows: row records to persist.
//   - batchSize: number of rows per INSERT statement.
// Returns:
//   - error: non-nil if any batch fails.
func (r *ImportRowRepository) CreateBatch(ctx context.Context, rows []domain.ImportRow, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, batchSize).Error
	})
}

// GetByID retrieves an import row by ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: row ID.
// Returns:
//   - *domain.ImportRow: row record if found.
//   - error: domain.ErrNotFound if absent, other errors otherwise.
func (r *ImportRowRepository) GetByID(ctx context.Context, id string) (*domain.ImportRow, error) {
	var row domain.ImportRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("import row %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &row, nil
}

// ListByJob retrieves rows for a job with optional status filter and
// pagination, ordered by row number.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobID: job ID.
//   - statuses: status filter; empty means all.
//   - limit: maximum number of records to return; <= 0 means no limit.
//   - offset: number of records to skip.
// Returns:
//   - []domain.ImportRow: matching rows in row-number order.
//   - int64: total count of matching rows ignoring pagination.
//   - error: non-nil if the query fails.
func (r *ImportRowRepository) ListByJob(ctx context.Context, jobID string, statuses []domain.RowStatus, limit, offset int) ([]domain.ImportRow, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.ImportRow{}).Where("job_id = ?", jobID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []domain.ImportRow
	if err := query.Offset(offset).Order("row_number ASC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListNeedingReview retrieves rows awaiting a reviewer decision, ordered by
// row number: status in (duplicate, conflict) and no decision recorded.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobID: job ID.
// Returns:
//   - []domain.ImportRow: rows awaiting review.
//   - error: non-nil if the query fails.
func (r *ImportRowRepository) ListNeedingReview(ctx context.Context, jobID string) ([]domain.ImportRow, error) {
	var rows []domain.ImportRow
	if err := r.db.WithContext(ctx).
		Where("job_id = ? AND status IN ? AND decision IS NULL", jobID,
			[]domain.RowStatus{domain.RowStatusDuplicate, domain.RowStatusConflict}).
		Order("row_number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountPendingReview counts rows awaiting a reviewer decision. This is the
// execution gate: a job may not start processing while the count is non-zero.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobID: job ID.
// Returns:
//   - int64: number of rows awaiting review.
//   - error: non-nil if the query fails.
func (r *ImportRowRepository) CountPendingReview(ctx context.Context, jobID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.ImportRow{}).
		Where("job_id = ? AND status IN ? AND decision IS NULL", jobID,
			[]domain.RowStatus{domain.RowStatusDuplicate, domain.RowStatusConflict}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateDecision writes a decision and overwrite fields onto a row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rowID: row ID.
//   - decision: reviewer decision.
//   - overwriteFields: fields authorized for overwrite; nil clears the set.
// Returns:
//   - error: non-nil if the update fails.
func (r *ImportRowRepository) UpdateDecision(ctx context.Context, rowID string, decision domain.RowDecision, overwriteFields domain.StringList) error {
	return r.db.WithContext(ctx).Model(&domain.ImportRow{}).
		Where("id = ?", rowID).
		Updates(map[string]interface{}{
			"decision":         decision,
			"overwrite_fields": overwriteFields,
		}).Error
}

// ApplyDecisions writes a pre-validated batch of decisions in one
// transaction, so a storage failure cannot leave the batch half-applied.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - decisions: rowID -> (decision, overwriteFields) pairs.
// Returns:
//   - error: non-nil if any write fails; no decision is applied in that case.
func (r *ImportRowRepository) ApplyDecisions(ctx context.Context, decisions []RowDecisionUpdate) error {
	if len(decisions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range decisions {
			if err := tx.Model(&domain.ImportRow{}).
				Where("id = ?", d.RowID).
				Updates(map[string]interface{}{
					"decision":         d.Decision,
					"overwrite_fields": d.OverwriteFields,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// RowDecisionUpdate is one entry of a batch decision write.
type RowDecisionUpdate struct {
	RowID           string
	Decision        domain.RowDecision
	OverwriteFields domain.StringList
}

// MarkResult records a row's execution outcome.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rowID: row ID.
//   - status: terminal row status (imported or skipped).
//   - matchedContactID: contact the row resolved to; nil leaves it unchanged.
// Returns:
//   - error: non-nil if the update fails.
func (r *ImportRowRepository) MarkResult(ctx context.Context, rowID string, status domain.RowStatus, matchedContactID *string) error {
	updates := map[string]interface{}{
		"status":     status,
		"last_error": "",
	}
	if matchedContactID != nil {
		updates["matched_contact_id"] = *matchedContactID
	}
	return r.db.WithContext(ctx).Model(&domain.ImportRow{}).
		Where("id = ?", rowID).
		Updates(updates).Error
}

// RecordError stores a row-level error without changing the row's status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rowID: row ID.
//   - message: error description for later inspection via row listing.
// Returns:
//   - error: non-nil if the update fails.
func (r *ImportRowRepository) RecordError(ctx context.Context, rowID, message string) error {
	return r.db.WithContext(ctx).Model(&domain.ImportRow{}).
		Where("id = ?", rowID).
		Update("last_error", message).Error
}
