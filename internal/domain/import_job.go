package domain

import "time"

// JobStatus represents the status of an import job.
// Values include JobStatusPending, JobStatusAnalyzing, JobStatusPendingReview,
// JobStatusProcessing, JobStatusCompleted, and JobStatusFailed.
type JobStatus string

const (
	JobStatusPending       JobStatus = "pending"
	JobStatusAnalyzing     JobStatus = "analyzing"
	JobStatusPendingReview JobStatus = "pending_review"
	JobStatusProcessing    JobStatus = "processing"
	JobStatusCompleted     JobStatus = "completed"
	JobStatusFailed        JobStatus = "failed"
)

// ImportMode represents the per-job matching/auto-resolution policy.
// Values include ImportModeSafe, ImportModeBalanced, and ImportModeTurbo.
type ImportMode string

const (
	// ImportModeSafe requires exact field equality for a row to count as a duplicate.
	ImportModeSafe ImportMode = "safe"
	// ImportModeBalanced tolerates case/whitespace-only differences for duplicates.
	ImportModeBalanced ImportMode = "balanced"
	// ImportModeTurbo is balanced matching plus auto-resolution of
	// single-candidate conflicts to an overridable update decision.
	ImportModeTurbo ImportMode = "turbo"
)

// ValidImportMode reports whether mode is a known import mode.
// Parameters:
//   - mode: mode value to check.
// Returns:
//   - bool: true if the mode is one of safe, balanced, turbo.
func ValidImportMode(mode ImportMode) bool {
	switch mode {
	case ImportModeSafe, ImportModeBalanced, ImportModeTurbo:
		return true
	}
	return false
}

// jobTransitions is the exhaustive set of legal job status edges.
// Any status write that is not an edge here is rejected with
// ErrInvalidStateTransition. pending_review is also terminal when a job
// is abandoned; staleness is a caller concern.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:       {JobStatusAnalyzing},
	JobStatusAnalyzing:     {JobStatusPendingReview, JobStatusFailed},
	JobStatusPendingReview: {JobStatusProcessing},
	JobStatusProcessing:    {JobStatusCompleted, JobStatusFailed},
}

// CanTransition reports whether a job status change is a legal edge.
// Parameters:
//   - from: current job status.
//   - to: requested job status.
// Returns:
//   - bool: true if the transition is allowed.
func CanTransition(from, to JobStatus) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TerminalJobStatus reports whether a status is terminal for the pipeline.
// Parameters:
//   - status: job status to check.
// Returns:
//   - bool: true for completed and failed.
func TerminalJobStatus(status JobStatus) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}

// ImportJob represents one bulk contact upload progressing through the
// reconciliation pipeline: analysis, review, execution.
type ImportJob struct {
	ID            string     `gorm:"type:text;primaryKey" json:"id"`
	OwnerID       string     `gorm:"type:text;not null;index:idx_import_jobs_owner" json:"owner_id"`
	Mode          ImportMode `gorm:"type:text;default:balanced" json:"mode"`
	FileName      string     `gorm:"type:text;not null" json:"file_name"`
	FileURL       string     `gorm:"type:text;not null" json:"file_url"`
	FileSizeBytes int64      `json:"file_size_bytes"`
	Status        JobStatus  `gorm:"type:text;index:idx_import_jobs_status;default:pending" json:"status"`
	TotalRows     int        `gorm:"default:0" json:"total_rows"`
	CreatedCount  int        `gorm:"default:0" json:"created_count"`
	UpdatedCount  int        `gorm:"default:0" json:"updated_count"`
	SkippedCount  int        `gorm:"default:0" json:"skipped_count"`
	ErrorMessage  string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ImportJob.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (ImportJob) TableName() string {
	return "import_jobs"
}
