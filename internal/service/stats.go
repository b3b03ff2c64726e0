package service

import (
	"context"

	"github.com/keyhaven/keyhaven/internal/logger"
	"github.com/keyhaven/keyhaven/internal/repository"
)

// StatsService derives read-only cross-job counters for dashboards.
type StatsService struct {
	jobRepo     *repository.ImportJobRepository
	contactRepo *repository.ContactRepository
	logger      *logger.Logger
}

// NewStatsService creates a new stats service.
// Parameters:
//   - jobRepo: import job repository.
//   - contactRepo: contact repository.
//   - log: logger instance.
// Returns:
//   - *StatsService: initialized service.
func NewStatsService(
	jobRepo *repository.ImportJobRepository,
	contactRepo *repository.ContactRepository,
	log *logger.Logger,
) *StatsService {
	return &StatsService{
		jobRepo:     jobRepo,
		contactRepo: contactRepo,
		logger:      log,
	}
}

// ImportStats aggregates import activity for one owner.
type ImportStats struct {
	TotalJobs     int64            `json:"total_jobs"`
	JobsByStatus  map[string]int64 `json:"jobs_by_status"`
	TotalCreated  int64            `json:"total_created"`
	TotalUpdated  int64            `json:"total_updated"`
	TotalSkipped  int64            `json:"total_skipped"`
	TotalContacts int64            `json:"total_contacts"`
}

// GetStats aggregates job counts by status and summed result counters.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: contact owner ID.
// Returns:
//   - *ImportStats: aggregate counters.
//   - error: non-nil if a query fails.
func (s *StatsService) GetStats(ctx context.Context, ownerID string) (*ImportStats, error) {
	byStatus, err := s.jobRepo.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	created, updated, skipped, err := s.jobRepo.SumCounters(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	contacts, err := s.contactRepo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	stats := &ImportStats{
		JobsByStatus:  make(map[string]int64, len(byStatus)),
		TotalCreated:  created,
		TotalUpdated:  updated,
		TotalSkipped:  skipped,
		TotalContacts: contacts,
	}
	for status, count := range byStatus {
		stats.JobsByStatus[string(status)] = count
		stats.TotalJobs += count
	}
	return stats, nil
}
