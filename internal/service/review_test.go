package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/keyhaven/keyhaven/internal/domain"
)

func TestUpdateRowDecisionValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "agent-1"

	reviewJob := env.seedJob(t, owner, domain.JobStatusPendingReview)
	conflictRow := env.seedRow(t, reviewJob.ID, 1, domain.ImportRow{
		Status:           domain.RowStatusConflict,
		MatchedContactID: strPtr("c1"),
		ConflictFields:   domain.StringList{domain.FieldPhone, domain.AmbiguousMarker},
	})
	newRow := env.seedRow(t, reviewJob.ID, 2, domain.ImportRow{Status: domain.RowStatusNew})

	analyzingJob := env.seedJob(t, owner, domain.JobStatusAnalyzing)
	earlyRow := env.seedRow(t, analyzingJob.ID, 1, domain.ImportRow{Status: domain.RowStatusConflict})

	testCases := []struct {
		name      string
		rowID     string
		decision  domain.RowDecision
		overwrite []string
		wantErr   error
	}{
		{name: "unknown decision", rowID: conflictRow.ID, decision: "merge", wantErr: domain.ErrInvalidDecision},
		{name: "job not pending review", rowID: earlyRow.ID, decision: domain.DecisionSkip, wantErr: domain.ErrRowNotAwaitingReview},
		{name: "row not reviewable", rowID: newRow.ID, decision: domain.DecisionSkip, wantErr: domain.ErrRowNotAwaitingReview},
		{name: "skip with overwrite fields", rowID: conflictRow.ID, decision: domain.DecisionSkip, overwrite: []string{domain.FieldPhone}, wantErr: domain.ErrInvalidDecision},
		{name: "create with overwrite fields", rowID: conflictRow.ID, decision: domain.DecisionCreate, overwrite: []string{domain.FieldPhone}, wantErr: domain.ErrInvalidDecision},
		{name: "overwrite outside conflict set", rowID: conflictRow.ID, decision: domain.DecisionUpdate, overwrite: []string{domain.FieldCompany}, wantErr: domain.ErrOverwriteNotSubset},
		{name: "overwrite of ambiguity marker", rowID: conflictRow.ID, decision: domain.DecisionUpdate, overwrite: []string{domain.AmbiguousMarker}, wantErr: domain.ErrOverwriteNotSubset},
		{name: "valid update", rowID: conflictRow.ID, decision: domain.DecisionUpdate, overwrite: []string{domain.FieldPhone}, wantErr: nil},
		{name: "valid skip", rowID: conflictRow.ID, decision: domain.DecisionSkip, wantErr: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := env.review.UpdateRowDecision(ctx, owner, tc.rowID, tc.decision, tc.overwrite)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("UpdateRowDecision() error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("UpdateRowDecision() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestUpdateRowDecisionPersistsAndReplaces(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "agent-1"

	job := env.seedJob(t, owner, domain.JobStatusPendingReview)
	row := env.seedRow(t, job.ID, 1, domain.ImportRow{
		Status:         domain.RowStatusConflict,
		ConflictFields: domain.StringList{domain.FieldPhone, domain.FieldCompany},
	})

	if err := env.review.UpdateRowDecision(ctx, owner, row.ID, domain.DecisionUpdate, []string{domain.FieldPhone}); err != nil {
		t.Fatalf("first decision error: %v", err)
	}
	stored := env.reloadRow(t, row.ID)
	if stored.Decision == nil || *stored.Decision != domain.DecisionUpdate {
		t.Fatalf("stored decision = %v, want update", stored.Decision)
	}
	if !reflect.DeepEqual(stored.OverwriteFields, domain.StringList{domain.FieldPhone}) {
		t.Errorf("overwrite fields = %v, want [phone]", stored.OverwriteFields)
	}
	// Status never changes at review time
	if stored.Status != domain.RowStatusConflict {
		t.Errorf("status = %s, want conflict", stored.Status)
	}

	// A second decision replaces the first
	if err := env.review.UpdateRowDecision(ctx, owner, row.ID, domain.DecisionSkip, nil); err != nil {
		t.Fatalf("replacement decision error: %v", err)
	}
	stored = env.reloadRow(t, row.ID)
	if stored.Decision == nil || *stored.Decision != domain.DecisionSkip {
		t.Errorf("stored decision = %v, want skip", stored.Decision)
	}
	if len(stored.OverwriteFields) != 0 {
		t.Errorf("overwrite fields = %v, want cleared", stored.OverwriteFields)
	}
}

func TestBulkUpdateDecision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "agent-1"

	job := env.seedJob(t, owner, domain.JobStatusPendingReview)
	undecided1 := env.seedRow(t, job.ID, 1, domain.ImportRow{Status: domain.RowStatusDuplicate})
	undecided2 := env.seedRow(t, job.ID, 2, domain.ImportRow{Status: domain.RowStatusDuplicate})
	decided := env.seedRow(t, job.ID, 3, domain.ImportRow{
		Status:   domain.RowStatusDuplicate,
		Decision: decisionPtr(domain.DecisionCreate),
	})
	env.seedRow(t, job.ID, 4, domain.ImportRow{Status: domain.RowStatusConflict})

	// Undecided duplicates only
	count, err := env.review.BulkUpdateDecision(ctx, owner, job.ID, BulkDecisionInput{
		TargetStatus: domain.RowStatusDuplicate,
		Decision:     domain.DecisionSkip,
	})
	if err != nil {
		t.Fatalf("BulkUpdateDecision() error: %v", err)
	}
	if count != 2 {
		t.Fatalf("applied to %d rows, want 2", count)
	}
	for _, id := range []string{undecided1.ID, undecided2.ID} {
		if got := env.reloadRow(t, id); got.Decision == nil || *got.Decision != domain.DecisionSkip {
			t.Errorf("row %s decision = %v, want skip", id, got.Decision)
		}
	}
	if got := env.reloadRow(t, decided.ID); *got.Decision != domain.DecisionCreate {
		t.Errorf("decided row overwritten to %v without overwrite_all", *got.Decision)
	}

	// overwrite_all includes already-decided rows
	count, err = env.review.BulkUpdateDecision(ctx, owner, job.ID, BulkDecisionInput{
		TargetStatus: domain.RowStatusDuplicate,
		Decision:     domain.DecisionSkip,
		OverwriteAll: true,
	})
	if err != nil {
		t.Fatalf("BulkUpdateDecision(overwrite_all) error: %v", err)
	}
	if count != 3 {
		t.Fatalf("applied to %d rows, want 3", count)
	}
	if got := env.reloadRow(t, decided.ID); *got.Decision != domain.DecisionSkip {
		t.Errorf("decided row = %v, want skip after overwrite_all", *got.Decision)
	}
}

func TestBulkUpdateDecisionValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "agent-1"

	job := env.seedJob(t, owner, domain.JobStatusPendingReview)

	if _, err := env.review.BulkUpdateDecision(ctx, owner, job.ID, BulkDecisionInput{
		TargetStatus: domain.RowStatusNew,
		Decision:     domain.DecisionUpdate,
	}); !errors.Is(err, domain.ErrInvalidDecision) {
		t.Errorf("update on new rows error = %v, want ErrInvalidDecision", err)
	}

	if _, err := env.review.BulkUpdateDecision(ctx, owner, job.ID, BulkDecisionInput{
		TargetStatus: domain.RowStatusImported,
		Decision:     domain.DecisionSkip,
	}); !errors.Is(err, domain.ErrInvalidDecision) {
		t.Errorf("imported target error = %v, want ErrInvalidDecision", err)
	}

	done := env.seedJob(t, owner, domain.JobStatusCompleted)
	if _, err := env.review.BulkUpdateDecision(ctx, owner, done.ID, BulkDecisionInput{
		TargetStatus: domain.RowStatusDuplicate,
		Decision:     domain.DecisionSkip,
	}); !errors.Is(err, domain.ErrRowNotAwaitingReview) {
		t.Errorf("completed job error = %v, want ErrRowNotAwaitingReview", err)
	}
}

func TestBulkUpdateOverwriteAllSetsConflictFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "agent-1"

	job := env.seedJob(t, owner, domain.JobStatusPendingReview)
	row := env.seedRow(t, job.ID, 1, domain.ImportRow{
		Status:           domain.RowStatusConflict,
		MatchedContactID: strPtr("c1"),
		ConflictFields:   domain.StringList{domain.FieldPhone, domain.FieldCompany, domain.AmbiguousMarker},
	})

	count, err := env.review.BulkUpdateDecision(ctx, owner, job.ID, BulkDecisionInput{
		TargetStatus: domain.RowStatusConflict,
		Decision:     domain.DecisionUpdate,
		OverwriteAll: true,
	})
	if err != nil {
		t.Fatalf("BulkUpdateDecision() error: %v", err)
	}
	if count != 1 {
		t.Fatalf("applied to %d rows, want 1", count)
	}

	stored := env.reloadRow(t, row.ID)
	// The ambiguity marker is a warning, never an overwritable field
	want := domain.StringList{domain.FieldPhone, domain.FieldCompany}
	if !reflect.DeepEqual(stored.OverwriteFields, want) {
		t.Errorf("overwrite fields = %v, want %v", stored.OverwriteFields, want)
	}
}

func TestGetRowsNeedingReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "agent-1"

	job := env.seedJob(t, owner, domain.JobStatusPendingReview)
	env.seedRow(t, job.ID, 3, domain.ImportRow{Status: domain.RowStatusConflict})
	env.seedRow(t, job.ID, 1, domain.ImportRow{Status: domain.RowStatusDuplicate})
	env.seedRow(t, job.ID, 2, domain.ImportRow{Status: domain.RowStatusNew})
	env.seedRow(t, job.ID, 4, domain.ImportRow{
		Status:   domain.RowStatusConflict,
		Decision: decisionPtr(domain.DecisionSkip),
	})

	rows, err := env.review.GetRowsNeedingReview(ctx, owner, job.ID)
	if err != nil {
		t.Fatalf("GetRowsNeedingReview() error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].RowNumber != 1 || rows[1].RowNumber != 3 {
		t.Errorf("row order = %d, %d, want 1, 3", rows[0].RowNumber, rows[1].RowNumber)
	}

	count, err := env.review.CountPendingReview(ctx, owner, job.ID)
	if err != nil {
		t.Fatalf("CountPendingReview() error: %v", err)
	}
	if count != 2 {
		t.Errorf("pending count = %d, want 2", count)
	}

	if _, err := env.review.GetRowsNeedingReview(ctx, "other-owner", job.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("cross-owner error = %v, want ErrNotFound", err)
	}
}
