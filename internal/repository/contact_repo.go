package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/keyhaven/keyhaven/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContactRepository handles contact data operations.
type ContactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new ContactRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ContactRepository: repository instance bound to db.
func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create inserts a new contact record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - contact: contact record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *ContactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

// CreateIfAbsent atomically inserts a contact unless one with the same
// normalized email already exists for the owner. This is the single-writer
// guard against two concurrent imports both creating a contact for the same
// email: the unique (owner_id, email_norm) index decides the winner, not a
// read-then-write sequence. Contacts without an email are inserted directly.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - contact: contact record to insert.
// Returns:
//   - bool: true if the row was inserted, false if an existing contact won.
//   - error: non-nil if the insert fails for reasons other than the conflict.
func (r *ContactRepository) CreateIfAbsent(ctx context.Context, contact *domain.Contact) (bool, error) {
	if contact.EmailNorm == "" {
		if err := r.db.WithContext(ctx).Create(contact).Error; err != nil {
			return false, err
		}
		return true, nil
	}

	// TargetWhere must repeat the partial index predicate or the conflict
	// target will not resolve to idx_contacts_owner_email.
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "owner_id"}, {Name: "email_norm"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{gorm.Expr("email_norm <> ''")}},
		DoNothing:   true,
	}).Create(contact)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateFields applies a partial update to a contact by ID.
// Only the given columns are written, so callers control overwrite scope.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: contact ID.
//   - updates: column name to value map.
// Returns:
//   - error: non-nil if the update fails or the contact does not exist.
func (r *ContactRepository) UpdateFields(ctx context.Context, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&domain.Contact{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("contact %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetByID retrieves a contact by ID, scoped to its owner.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: contact owner ID.
//   - id: contact ID.
// Returns:
//   - *domain.Contact: contact record if found.
//   - error: domain.ErrNotFound if absent, other errors otherwise.
func (r *ContactRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).First(&contact, "owner_id = ? AND id = ?", ownerID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("contact %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &contact, nil
}

// GetByIDs retrieves contacts by a list of IDs.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: list of contact IDs.
// Returns:
//   - []domain.Contact: matching contact records.
//   - error: non-nil if the query fails.
func (r *ContactRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Contact, error) {
	if len(ids) == 0 {
		return []domain.Contact{}, nil
	}
	var contacts []domain.Contact
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("failed to get contacts by IDs: %w", err)
	}
	return contacts, nil
}

// FindByEmailNorm retrieves a contact by normalized email for an owner.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: contact owner ID.
//   - emailNorm: normalized email value.
// Returns:
//   - *domain.Contact: contact record, nil if none exists.
//   - error: non-nil if the lookup fails.
func (r *ContactRepository) FindByEmailNorm(ctx context.Context, ownerID, emailNorm string) (*domain.Contact, error) {
	if emailNorm == "" {
		return nil, nil
	}
	var contact domain.Contact
	err := r.db.WithContext(ctx).First(&contact, "owner_id = ? AND email_norm = ?", ownerID, emailNorm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

// ListByOwner retrieves all contacts for an owner. The analyzer snapshots
// this set into an in-memory match index before classifying rows.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: contact owner ID.
// Returns:
//   - []domain.Contact: contact records ordered by creation time.
//   - error: non-nil if the query fails.
func (r *ContactRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Contact, error) {
	var contacts []domain.Contact
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

// CountByOwner counts contacts for an owner.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: contact owner ID.
// Returns:
//   - int64: number of contacts.
//   - error: non-nil if the query fails.
func (r *ContactRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Contact{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
