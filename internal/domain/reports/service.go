package reports

import (
	"context"
	"time"
)

type StoreAPI interface {
	Dashboard(ctx context.Context, tenantID string, month time.Time, jobType string) (Dashboard, error)
	ListJobRuns(ctx context.Context, tenantID string, filter JobRunFilter, limit, offset int) ([]JobRun, error)
	CountJobRuns(ctx context.Context, tenantID string, filter JobRunFilter) (int, error)
	JobRunByID(ctx context.Context, tenantID, runID string) (JobRun, error)
}

type Service struct {
	Store   StoreAPI
	JobType string
}

// NewService reports on runs of jobType, the recomputation job.
func NewService(store StoreAPI, jobType string) *Service {
	return &Service{Store: store, JobType: jobType}
}

func (s *Service) Dashboard(ctx context.Context, tenantID string, month time.Time) (Dashboard, error) {
	return s.Store.Dashboard(ctx, tenantID, month, s.JobType)
}

func (s *Service) JobRuns(ctx context.Context, tenantID string, filter JobRunFilter, limit, offset int) ([]JobRun, int, error) {
	total, err := s.Store.CountJobRuns(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	runs, err := s.Store.ListJobRuns(ctx, tenantID, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

func (s *Service) JobRun(ctx context.Context, tenantID, runID string) (JobRun, error) {
	return s.Store.JobRunByID(ctx, tenantID, runID)
}
