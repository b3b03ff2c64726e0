package service

import (
	"reflect"
	"testing"

	"github.com/keyhaven/keyhaven/internal/domain"
)

// row builds an ordered raw field list from key/value pairs.
func row(pairs ...string) domain.RawFields {
	fields := make(domain.RawFields, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fields = append(fields, domain.RawField{Key: pairs[i], Value: pairs[i+1]})
	}
	return fields
}

func TestNormalizeEmail(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "Jane.Doe@Example.COM", want: "jane.doe@example.com"},
		{in: "  a@b.c  ", want: "a@b.c"},
		{in: "", want: ""},
		{in: "   ", want: ""},
	}
	for _, tc := range testCases {
		if got := NormalizeEmail(tc.in); got != tc.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "+1 (555) 123-4567", want: "15551234567"},
		{in: "555.123.4567", want: "5551234567"},
		{in: "no digits", want: ""},
		{in: "", want: ""},
	}
	for _, tc := range testCases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "  Mary   Jane ", want: "mary jane"},
		{in: "O'Brien", want: "o'brien"},
		{in: "", want: ""},
	}
	for _, tc := range testCases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMatchRowNoCandidates(t *testing.T) {
	idx := NewContactIndex([]domain.Contact{
		{ID: "c1", Email: "someone@example.com", Phone: "5550001", FirstName: "Ann", LastName: "Lee"},
	})

	result := MatchRow(row(domain.FieldEmail, "new@example.com", domain.FieldFirstName, "Bob"), idx, domain.ImportModeBalanced)

	if result.Status != domain.RowStatusNew {
		t.Errorf("status = %s, want new", result.Status)
	}
	if result.MatchedContactID != nil {
		t.Errorf("matched contact = %v, want nil", *result.MatchedContactID)
	}
	if len(result.ConflictFields) != 0 {
		t.Errorf("conflict fields = %v, want none", result.ConflictFields)
	}
}

func TestMatchRowDuplicateSafe(t *testing.T) {
	idx := NewContactIndex([]domain.Contact{
		{ID: "c1", Email: "a@x.com", FirstName: "Ann", LastName: "Lee", Phone: "5550001", Company: "Acme Realty"},
	})

	result := MatchRow(row(
		domain.FieldEmail, "a@x.com",
		domain.FieldFirstName, "Ann",
		domain.FieldLastName, "Lee",
		domain.FieldPhone, "5550001",
		domain.FieldCompany, "Acme Realty",
	), idx, domain.ImportModeSafe)

	if result.Status != domain.RowStatusDuplicate {
		t.Fatalf("status = %s, want duplicate", result.Status)
	}
	if result.MatchedContactID == nil || *result.MatchedContactID != "c1" {
		t.Errorf("matched contact = %v, want c1", result.MatchedContactID)
	}
	if result.Decision != nil {
		t.Errorf("decision = %v, want nil", *result.Decision)
	}
}

func TestMatchRowModeTolerance(t *testing.T) {
	// Same values, differing only in case and whitespace
	idx := NewContactIndex([]domain.Contact{
		{ID: "c1", Email: "a@x.com", FirstName: "Ann", Company: "Acme  Realty"},
	})
	fields := row(domain.FieldEmail, "a@x.com", domain.FieldFirstName, "ANN", domain.FieldCompany, "acme realty")

	safe := MatchRow(fields, idx, domain.ImportModeSafe)
	if safe.Status != domain.RowStatusConflict {
		t.Errorf("safe status = %s, want conflict", safe.Status)
	}
	wantConflicts := domain.StringList{domain.FieldFirstName, domain.FieldCompany}
	if !reflect.DeepEqual(safe.ConflictFields, wantConflicts) {
		t.Errorf("safe conflicts = %v, want %v", safe.ConflictFields, wantConflicts)
	}

	balanced := MatchRow(fields, idx, domain.ImportModeBalanced)
	if balanced.Status != domain.RowStatusDuplicate {
		t.Errorf("balanced status = %s, want duplicate", balanced.Status)
	}
}

func TestMatchRowPhoneFormattingIgnoredInBalanced(t *testing.T) {
	idx := NewContactIndex([]domain.Contact{
		{ID: "c1", Email: "a@x.com", Phone: "(555) 000-0001"},
	})
	fields := row(domain.FieldEmail, "a@x.com", domain.FieldPhone, "5550000001")

	if got := MatchRow(fields, idx, domain.ImportModeBalanced); got.Status != domain.RowStatusDuplicate {
		t.Errorf("balanced status = %s, want duplicate", got.Status)
	}
	if got := MatchRow(fields, idx, domain.ImportModeSafe); got.Status != domain.RowStatusConflict {
		t.Errorf("safe status = %s, want conflict", got.Status)
	}
}

func TestMatchRowBlankValuesAreNotDiffs(t *testing.T) {
	idx := NewContactIndex([]domain.Contact{
		{ID: "c1", Email: "a@x.com", FirstName: "Ann", Phone: "5550001", Address: "12 Main St"},
	})

	// Sparse row: phone and address columns empty must not propose blanking
	result := MatchRow(row(
		domain.FieldEmail, "a@x.com",
		domain.FieldFirstName, "Ann",
		domain.FieldPhone, "",
		domain.FieldAddress, "",
	), idx, domain.ImportModeSafe)

	if result.Status != domain.RowStatusDuplicate {
		t.Errorf("status = %s, want duplicate", result.Status)
	}
}

func TestMatchRowCandidatePrecedence(t *testing.T) {
	// Row's email matches c1 and its phone matches c2; email outranks phone
	idx := NewContactIndex([]domain.Contact{
		{ID: "c1", Email: "a@x.com", FirstName: "Ann"},
		{ID: "c2", Email: "b@x.com", Phone: "5550002", FirstName: "Bea"},
	})

	result := MatchRow(row(
		domain.FieldEmail, "a@x.com",
		domain.FieldPhone, "5550002",
		domain.FieldFirstName, "Ann",
	), idx, domain.ImportModeBalanced)

	if result.MatchedContactID == nil || *result.MatchedContactID != "c1" {
		t.Errorf("matched contact = %v, want c1", result.MatchedContactID)
	}
}

func TestMatchRowNameFallback(t *testing.T) {
	idx := NewContactIndex([]domain.Contact{
		{ID: "c1", FirstName: "Mary  Jane", LastName: "Watson", Email: "mj@x.com"},
	})

	result := MatchRow(row(
		domain.FieldFirstName, "mary jane",
		domain.FieldLastName, "WATSON",
	), idx, domain.ImportModeBalanced)

	if result.Status != domain.RowStatusDuplicate {
		t.Errorf("status = %s, want duplicate", result.Status)
	}
	if result.MatchedContactID == nil || *result.MatchedContactID != "c1" {
		t.Errorf("matched contact = %v, want c1", result.MatchedContactID)
	}
}

func TestMatchRowAmbiguousCandidates(t *testing.T) {
	// Two contacts share the phone; the snapshot-first one wins and the
	// reviewer gets the ambiguity marker
	idx := NewContactIndex([]domain.Contact{
		{ID: "c1", Phone: "5550001", FirstName: "Ann"},
		{ID: "c2", Phone: "5550001", FirstName: "Bea"},
	})

	result := MatchRow(row(domain.FieldPhone, "555-0001", domain.FieldFirstName, "Ann"), idx, domain.ImportModeBalanced)

	if result.Status != domain.RowStatusConflict {
		t.Fatalf("status = %s, want conflict", result.Status)
	}
	if result.MatchedContactID == nil || *result.MatchedContactID != "c1" {
		t.Errorf("matched contact = %v, want c1", result.MatchedContactID)
	}
	if !result.ConflictFields.Contains(domain.AmbiguousMarker) {
		t.Errorf("conflicts %v missing ambiguity marker", result.ConflictFields)
	}
}

func TestMatchRowTurboAutoResolve(t *testing.T) {
	idx := NewContactIndex([]domain.Contact{
		{ID: "c1", Email: "a@x.com", Phone: "5550001", Company: "Old Co"},
	})
	fields := row(domain.FieldEmail, "a@x.com", domain.FieldPhone, "5559999", domain.FieldCompany, "New Co")

	result := MatchRow(fields, idx, domain.ImportModeTurbo)

	if result.Status != domain.RowStatusConflict {
		t.Fatalf("status = %s, want conflict", result.Status)
	}
	if result.Decision == nil || *result.Decision != domain.DecisionUpdate {
		t.Fatalf("decision = %v, want update", result.Decision)
	}
	if !reflect.DeepEqual(result.OverwriteFields, domain.StringList{domain.FieldPhone, domain.FieldCompany}) {
		t.Errorf("overwrite fields = %v, want [phone company]", result.OverwriteFields)
	}

	// Balanced never pre-resolves
	if got := MatchRow(fields, idx, domain.ImportModeBalanced); got.Decision != nil {
		t.Errorf("balanced decision = %v, want nil", *got.Decision)
	}
}

func TestMatchRowTurboLeavesAmbiguousUnresolved(t *testing.T) {
	idx := NewContactIndex([]domain.Contact{
		{ID: "c1", Email: "a@x.com", Company: "One"},
		{ID: "c2", Email: "a@x.com", Company: "Two"},
	})

	result := MatchRow(row(domain.FieldEmail, "a@x.com", domain.FieldCompany, "Three"), idx, domain.ImportModeTurbo)

	if result.Status != domain.RowStatusConflict {
		t.Fatalf("status = %s, want conflict", result.Status)
	}
	if result.Decision != nil {
		t.Errorf("decision = %v, want nil for ambiguous match", *result.Decision)
	}
}

// TestMatchRowDeterministic verifies that the same row and snapshot always
// classify identically
func TestMatchRowDeterministic(t *testing.T) {
	contacts := []domain.Contact{
		{ID: "c1", Email: "a@x.com", Phone: "5550001", FirstName: "Ann"},
		{ID: "c2", Email: "b@x.com", Phone: "5550001", FirstName: "Bea"},
		{ID: "c3", FirstName: "Cal", LastName: "Ray"},
	}
	fields := row(domain.FieldPhone, "5550001", domain.FieldFirstName, "Zoe")

	first := MatchRow(fields, NewContactIndex(contacts), domain.ImportModeBalanced)
	for i := 0; i < 10; i++ {
		got := MatchRow(fields, NewContactIndex(contacts), domain.ImportModeBalanced)
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d classified %+v, first run %+v", i, got, first)
		}
	}
}
