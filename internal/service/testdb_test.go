package service

import (
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/keyhaven/keyhaven/internal/domain"
	"github.com/keyhaven/keyhaven/internal/logger"
	"github.com/keyhaven/keyhaven/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBSeq int64

// newTestDB opens a migrated, isolated in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:svc_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// quietLogger returns a logger that discards output in tests.
func quietLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "text", Output: io.Discard, ServiceName: "test"})
}

// testEnv bundles the repositories and services under test.
type testEnv struct {
	db       *gorm.DB
	contacts *repository.ContactRepository
	jobs     *repository.ImportJobRepository
	rows     *repository.ImportRowRepository

	imports *ImportService
	review  *ReviewService
	execute *ExecuteService
	stats   *StatsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	log := quietLogger()

	contacts := repository.NewContactRepository(db)
	jobs := repository.NewImportJobRepository(db)
	rows := repository.NewImportRowRepository(db)

	return &testEnv{
		db:       db,
		contacts: contacts,
		jobs:     jobs,
		rows:     rows,
		imports:  NewImportService(jobs, rows, contacts, log),
		review:   NewReviewService(jobs, rows, log),
		execute:  NewExecuteService(jobs, rows, contacts, log, &ExecuteConfig{RetryCount: 1}),
		stats:    NewStatsService(jobs, contacts, log),
	}
}

// seedJob inserts a job in the given status.
func (e *testEnv) seedJob(t *testing.T, ownerID string, status domain.JobStatus) *domain.ImportJob {
	t.Helper()

	job := &domain.ImportJob{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Mode:      domain.ImportModeBalanced,
		FileName:  "contacts.csv",
		FileURL:   "file:///tmp/contacts.csv",
		Status:    status,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := e.db.Create(job).Error; err != nil {
		t.Fatalf("failed to seed job: %v", err)
	}
	return job
}

// seedRow inserts one import row for a job.
func (e *testEnv) seedRow(t *testing.T, jobID string, number int, row domain.ImportRow) *domain.ImportRow {
	t.Helper()

	row.ID = uuid.New().String()
	row.JobID = jobID
	row.RowNumber = number
	row.CreatedAt = time.Now()
	row.UpdatedAt = time.Now()
	if err := e.db.Create(&row).Error; err != nil {
		t.Fatalf("failed to seed row %d: %v", number, err)
	}
	return &row
}

// seedContact inserts a contact with normalized identity fields derived from
// the raw values.
func (e *testEnv) seedContact(t *testing.T, contact domain.Contact) *domain.Contact {
	t.Helper()

	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	contact.EmailNorm = NormalizeEmail(contact.Email)
	contact.PhoneNorm = NormalizePhone(contact.Phone)
	contact.CreatedAt = time.Now()
	contact.UpdatedAt = time.Now()
	if err := e.db.Create(&contact).Error; err != nil {
		t.Fatalf("failed to seed contact: %v", err)
	}
	return &contact
}

// reloadRow fetches a row's current database state.
func (e *testEnv) reloadRow(t *testing.T, rowID string) *domain.ImportRow {
	t.Helper()

	var row domain.ImportRow
	if err := e.db.First(&row, "id = ?", rowID).Error; err != nil {
		t.Fatalf("failed to reload row %s: %v", rowID, err)
	}
	return &row
}

// reloadContact fetches a contact's current database state.
func (e *testEnv) reloadContact(t *testing.T, contactID string) *domain.Contact {
	t.Helper()

	var contact domain.Contact
	if err := e.db.First(&contact, "id = ?", contactID).Error; err != nil {
		t.Fatalf("failed to reload contact %s: %v", contactID, err)
	}
	return &contact
}

func decisionPtr(d domain.RowDecision) *domain.RowDecision {
	return &d
}

func strPtr(s string) *string {
	return &s
}
