package service

import (
	"strings"

	"github.com/keyhaven/keyhaven/internal/domain"
)

// matchRank orders candidate signals: email is the strongest, phone second,
// name weakest.
type matchRank int

const (
	rankNone matchRank = iota
	rankName
	rankPhone
	rankEmail
)

// NormalizeEmail lower-cases and trims an email address.
// Parameters:
//   - email: raw email value.
// Returns:
//   - string: normalized email, empty if the input is blank.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips every non-digit character from a phone number.
// Parameters:
//   - phone: raw phone value.
// Returns:
//   - string: digits only, empty if none remain.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeName collapses internal whitespace, trims, and lower-cases a name
// component for match keys.
// Parameters:
//   - name: raw name value.
// Returns:
//   - string: normalized name.
func NormalizeName(name string) string {
	return strings.ToLower(collapseWhitespace(name))
}

// collapseWhitespace trims and squeezes runs of whitespace to single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// nameKey builds the (firstName, lastName) lookup key. Empty when both
// components are blank so nameless rows never match by name.
func nameKey(first, last string) string {
	f := NormalizeName(first)
	l := NormalizeName(last)
	if f == "" && l == "" {
		return ""
	}
	return f + "\x00" + l
}

// ContactIndex is a read-only snapshot of an owner's contacts, keyed by the
// normalized identity fields the matcher looks up. Candidate lists preserve
// snapshot order, which keeps matching deterministic.
type ContactIndex struct {
	byEmail map[string][]*domain.Contact
	byPhone map[string][]*domain.Contact
	byName  map[string][]*domain.Contact
	size    int
}

// NewContactIndex builds a match index from a contact snapshot.
// Parameters:
//   - contacts: the owner's existing contacts.
// Returns:
//   - *ContactIndex: index ready for row classification.
func NewContactIndex(contacts []domain.Contact) *ContactIndex {
	idx := &ContactIndex{
		byEmail: make(map[string][]*domain.Contact),
		byPhone: make(map[string][]*domain.Contact),
		byName:  make(map[string][]*domain.Contact),
		size:    len(contacts),
	}
	for i := range contacts {
		c := &contacts[i]
		if key := NormalizeEmail(c.Email); key != "" {
			idx.byEmail[key] = append(idx.byEmail[key], c)
		}
		if key := NormalizePhone(c.Phone); key != "" {
			idx.byPhone[key] = append(idx.byPhone[key], c)
		}
		if key := nameKey(c.FirstName, c.LastName); key != "" {
			idx.byName[key] = append(idx.byName[key], c)
		}
	}
	return idx
}

// Size returns the number of contacts in the snapshot.
// Parameters: none.
// Returns:
//   - int: contact count.
func (idx *ContactIndex) Size() int {
	return idx.size
}

// lookup finds candidates for a row. The first non-empty candidate set wins:
// email, then phone, then name.
func (idx *ContactIndex) lookup(fields domain.RawFields) ([]*domain.Contact, matchRank) {
	if key := NormalizeEmail(fields.Get(domain.FieldEmail)); key != "" {
		if candidates := idx.byEmail[key]; len(candidates) > 0 {
			return candidates, rankEmail
		}
	}
	if key := NormalizePhone(fields.Get(domain.FieldPhone)); key != "" {
		if candidates := idx.byPhone[key]; len(candidates) > 0 {
			return candidates, rankPhone
		}
	}
	if key := nameKey(fields.Get(domain.FieldFirstName), fields.Get(domain.FieldLastName)); key != "" {
		if candidates := idx.byName[key]; len(candidates) > 0 {
			return candidates, rankName
		}
	}
	return nil, rankNone
}

// MatchResult is the matcher's classification of one row.
type MatchResult struct {
	Status           domain.RowStatus
	MatchedContactID *string
	ConflictFields   domain.StringList
	Decision         *domain.RowDecision
	OverwriteFields  domain.StringList
}

// MatchRow classifies one raw row against the contact snapshot. Pure: the
// same row, snapshot, and mode always produce the same result.
// Parameters:
//   - fields: the row's raw field values.
//   - idx: contact snapshot index for the same owner.
//   - mode: per-job matching policy.
// Returns:
//   - MatchResult: row status, matched contact, field differences, and any
//     turbo-mode pre-resolution.
func MatchRow(fields domain.RawFields, idx *ContactIndex, mode domain.ImportMode) MatchResult {
	candidates, _ := idx.lookup(fields)

	if len(candidates) == 0 {
		return MatchResult{Status: domain.RowStatusNew}
	}

	// Multiple candidates share the winning signal; the snapshot-ordered
	// first one is the best-ranked match, and the reviewer gets warned.
	ambiguous := len(candidates) > 1
	best := candidates[0]

	conflicts := diffFields(fields, best, mode)
	if ambiguous {
		conflicts = append(conflicts, domain.AmbiguousMarker)
	}

	result := MatchResult{MatchedContactID: &best.ID}
	if len(conflicts) == 0 {
		result.Status = domain.RowStatusDuplicate
		return result
	}

	result.Status = domain.RowStatusConflict
	result.ConflictFields = conflicts

	// Turbo pre-resolves single-candidate conflicts; the decision stays
	// visible and overridable until execution.
	if mode == domain.ImportModeTurbo && !ambiguous {
		decision := domain.DecisionUpdate
		result.Decision = &decision
		result.OverwriteFields = append(domain.StringList{}, conflicts...)
	}
	return result
}

// diffFields returns the comparable fields whose row value differs from the
// contact's current value under the mode's equality rules. Blank row values
// are treated as "not provided" rather than a difference, so a sparse
// spreadsheet never proposes blanking out existing data.
func diffFields(fields domain.RawFields, contact *domain.Contact, mode domain.ImportMode) domain.StringList {
	var diffs domain.StringList
	for _, field := range domain.ComparableFields {
		rowValue := strings.TrimSpace(fields.Get(field))
		if rowValue == "" {
			continue
		}
		if !fieldsEqual(field, rowValue, contact.FieldValue(field), mode) {
			diffs = append(diffs, field)
		}
	}
	return diffs
}

// fieldsEqual compares one field under the mode's tolerance: safe requires
// exact equality, balanced and turbo ignore case and whitespace differences
// (and formatting for phone numbers).
func fieldsEqual(field, rowValue, contactValue string, mode domain.ImportMode) bool {
	if mode == domain.ImportModeSafe {
		return rowValue == contactValue
	}
	if field == domain.FieldPhone {
		return NormalizePhone(rowValue) == NormalizePhone(contactValue)
	}
	return strings.EqualFold(collapseWhitespace(rowValue), collapseWhitespace(contactValue))
}
