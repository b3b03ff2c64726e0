package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/keyhaven/keyhaven/internal/domain"
)

// memStore serves a fixed file body, or a fetch error.
type memStore struct {
	content string
	err     error
}

func (s *memStore) Fetch(ctx context.Context, fileURL string) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.content)), nil
}

func (s *memStore) Exists(ctx context.Context, fileURL string) (bool, error) {
	return s.err == nil, nil
}

func (s *memStore) Delete(ctx context.Context, fileURL string) error {
	return nil
}

func newAnalyzeService(env *testEnv, store *memStore) *AnalyzeService {
	return NewAnalyzeService(env.jobs, env.rows, env.contacts, store, quietLogger(), &AnalyzeConfig{
		BatchSize:  50,
		RetryCount: 1,
		MaxRows:    1000,
	})
}

func TestAnalyzeStagesRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "agent-1"

	env.seedContact(t, domain.Contact{
		OwnerID: owner, FirstName: "Ann", LastName: "Lee",
		Email: "ann@x.com", Phone: "5550001",
	})

	store := &memStore{content: "First Name,Last Name,Email,Phone\n" +
		"Ann,Lee,ann@x.com,5550001\n" +
		"Ann,Lee,ANN@x.com,555-2222\n" +
		"Bob,Ray,bob@x.com,5550003\n"}

	job := env.seedJob(t, owner, domain.JobStatusPending)
	analyzer := newAnalyzeService(env, store)

	finished, err := analyzer.Analyze(ctx, owner, job.ID)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	if finished.Status != domain.JobStatusPendingReview {
		t.Fatalf("job status = %s, want pending_review", finished.Status)
	}
	if finished.TotalRows != 3 {
		t.Errorf("total rows = %d, want 3", finished.TotalRows)
	}

	rows, _, err := env.rows.ListByJob(ctx, job.ID, nil, 0, 0)
	if err != nil {
		t.Fatalf("ListByJob() error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("staged %d rows, want 3", len(rows))
	}

	if rows[0].Status != domain.RowStatusDuplicate {
		t.Errorf("row 1 status = %s, want duplicate", rows[0].Status)
	}
	if rows[1].Status != domain.RowStatusConflict {
		t.Errorf("row 2 status = %s, want conflict", rows[1].Status)
	}
	if !rows[1].ConflictFields.Contains(domain.FieldPhone) {
		t.Errorf("row 2 conflicts = %v, want phone", rows[1].ConflictFields)
	}
	if rows[2].Status != domain.RowStatusNew {
		t.Errorf("row 3 status = %s, want new", rows[2].Status)
	}
}

func TestAnalyzeRequiresPendingJob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "agent-1"

	job := env.seedJob(t, owner, domain.JobStatusPendingReview)
	analyzer := newAnalyzeService(env, &memStore{content: "email\na@x.com\n"})

	if _, err := analyzer.Analyze(ctx, owner, job.ID); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("Analyze() error = %v, want ErrInvalidStateTransition", err)
	}
}

func TestAnalyzeFetchFailureFailsJob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "agent-1"

	job := env.seedJob(t, owner, domain.JobStatusPending)
	analyzer := newAnalyzeService(env, &memStore{err: errors.New("object not found")})

	if _, err := analyzer.Analyze(ctx, owner, job.ID); err == nil {
		t.Fatal("expected fetch error, got nil")
	}

	stored, err := env.jobs.GetByID(ctx, owner, job.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if stored.Status != domain.JobStatusFailed {
		t.Errorf("job status = %s, want failed", stored.Status)
	}
	if stored.ErrorMessage == "" {
		t.Error("failed job has no error message")
	}
}

func TestAnalyzeUnsupportedFormatFailsJob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "agent-1"

	job := env.seedJob(t, owner, domain.JobStatusPending)
	if err := env.db.Model(&domain.ImportJob{}).Where("id = ?", job.ID).
		Update("file_name", "contacts.pdf").Error; err != nil {
		t.Fatalf("failed to rename file: %v", err)
	}

	analyzer := newAnalyzeService(env, &memStore{content: "binary"})
	if _, err := analyzer.Analyze(ctx, owner, job.ID); err == nil {
		t.Fatal("expected parse error, got nil")
	}

	stored, _ := env.jobs.GetByID(ctx, owner, job.ID)
	if stored.Status != domain.JobStatusFailed {
		t.Errorf("job status = %s, want failed", stored.Status)
	}
}
