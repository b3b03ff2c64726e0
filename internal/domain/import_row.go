package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// RowStatus represents the classification/terminal status of an import row.
// Values include RowStatusNew, RowStatusDuplicate, RowStatusConflict,
// RowStatusImported, and RowStatusSkipped.
type RowStatus string

const (
	RowStatusNew       RowStatus = "new"
	RowStatusDuplicate RowStatus = "duplicate"
	RowStatusConflict  RowStatus = "conflict"
	RowStatusImported  RowStatus = "imported"
	RowStatusSkipped   RowStatus = "skipped"
)

// RowDecision represents the reviewer's resolution for an ambiguous row.
// Values include DecisionCreate, DecisionUpdate, and DecisionSkip.
type RowDecision string

const (
	DecisionCreate RowDecision = "create"
	DecisionUpdate RowDecision = "update"
	DecisionSkip   RowDecision = "skip"
)

// ValidRowDecision reports whether d is a known decision value.
// Parameters:
//   - d: decision value to check.
// Returns:
//   - bool: true if the decision is one of create, update, skip.
func ValidRowDecision(d RowDecision) bool {
	switch d {
	case DecisionCreate, DecisionUpdate, DecisionSkip:
		return true
	}
	return false
}

// Canonical import field names shared by the spreadsheet parser, the matcher,
// and contact mutation. Email is identity, the rest are comparable fields.
const (
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldCompany   = "company"
	FieldAddress   = "address"
)

// AmbiguousMarker is the synthetic conflict-field entry recorded when more
// than one existing contact matched a row, so reviewers are warned that the
// matched contact is only the best-ranked candidate.
const AmbiguousMarker = "__ambiguous__"

// ComparableFields lists the fields compared between a row and its matched
// contact when classifying duplicate vs conflict. Email is excluded: it is
// the match key, not a compared field.
var ComparableFields = []string{FieldFirstName, FieldLastName, FieldPhone, FieldCompany, FieldAddress}

// StringList is a custom type for storing string slices as JSON in the database.
type StringList []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringList")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, l)
}

// Contains reports whether the list contains s.
// Parameters:
//   - s: value to look for.
// Returns:
//   - bool: true if present.
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// RawField is one key/value pair read from a source spreadsheet row.
type RawField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RawFields is an ordered key->value mapping as read from the source row,
// stored as JSON. A slice rather than a map so source column order survives
// the round trip.
type RawFields []RawField

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded representation of the field list.
//   - error: non-nil if marshaling fails.
func (f RawFields) Value() (driver.Value, error) {
	if f == nil {
		return "[]", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (f *RawFields) Scan(value interface{}) error {
	if value == nil {
		*f = RawFields{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan RawFields")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, f)
}

// Get returns the value for a key.
// Parameters:
//   - key: field key to look up.
// Returns:
//   - string: value, empty if absent.
func (f RawFields) Get(key string) string {
	for _, field := range f {
		if field.Key == key {
			return field.Value
		}
	}
	return ""
}

// IsEmpty reports whether every value in the row is blank.
// Parameters: none.
// Returns:
//   - bool: true if all values are empty strings.
func (f RawFields) IsEmpty() bool {
	for _, field := range f {
		if field.Value != "" {
			return false
		}
	}
	return true
}

// ImportRow represents one source record within an import job, tracked
// independently through matching, review, and execution.
type ImportRow struct {
	ID               string       `gorm:"type:text;primaryKey" json:"id"`
	JobID            string       `gorm:"type:text;not null;index:idx_import_rows_job" json:"job_id"`
	RowNumber        int          `gorm:"not null" json:"row_number"`
	RawFields        RawFields    `gorm:"type:text" json:"raw_fields"`
	Status           RowStatus    `gorm:"type:text;index:idx_import_rows_status" json:"status"`
	MatchedContactID *string      `gorm:"type:text" json:"matched_contact_id,omitempty"`
	ConflictFields   StringList   `gorm:"type:text" json:"conflict_fields,omitempty"`
	Decision         *RowDecision `gorm:"type:text" json:"decision,omitempty"`
	OverwriteFields  StringList   `gorm:"type:text" json:"overwrite_fields,omitempty"`
	LastError        string       `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`

	// MatchedContact is populated on demand when callers request hydrated rows.
	MatchedContact *Contact `gorm:"-" json:"matched_contact,omitempty"`
}

// TableName returns the database table name for ImportRow.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (ImportRow) TableName() string {
	return "import_rows"
}

// AwaitingReview reports whether the row still needs a reviewer decision.
// Parameters: none.
// Returns:
//   - bool: true if status is duplicate or conflict and no decision recorded.
func (r *ImportRow) AwaitingReview() bool {
	return (r.Status == RowStatusDuplicate || r.Status == RowStatusConflict) && r.Decision == nil
}

// TerminalRowStatus reports whether a row status is terminal.
// Parameters:
//   - status: row status to check.
// Returns:
//   - bool: true for imported and skipped.
func TerminalRowStatus(status RowStatus) bool {
	return status == RowStatusImported || status == RowStatusSkipped
}
