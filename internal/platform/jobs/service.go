package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hsdash/internal/domain/ranking"
	"hsdash/internal/platform/metrics"
	"hsdash/internal/platform/querier"
)

const (
	JobRankingRecompute = "ranking_recompute"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	queueSize = 128
)

var ErrQueueFull = errors.New("job queue full")

// Recomputer is the part of the ranking service the scheduler drives.
type Recomputer interface {
	Recompute(ctx context.Context, tenantID string, period ranking.Period) (ranking.Snapshot, error)
}

type Service struct {
	DB       querier.Querier
	Rankings Recomputer
	Interval time.Duration
	Metrics  *metrics.Metrics
	Now      func() time.Time
	queue    chan job
}

type job struct {
	Type     string
	TenantID string
	Run      func(context.Context) (any, error)
}

// RecomputeSummary is stored in job_runs.details_json.
type RecomputeSummary struct {
	Period    string   `json:"period"`
	Employees int      `json:"employees"`
	Warnings  []string `json:"warnings,omitempty"`
}

func New(db querier.Querier, rankings Recomputer, interval time.Duration, m *metrics.Metrics) *Service {
	return &Service{
		DB:       db,
		Rankings: rankings,
		Interval: interval,
		Metrics:  m,
		Now:      time.Now,
		queue:    make(chan job, queueSize),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Interval > 0 {
		go s.scheduleRankings(ctx, s.Interval)
	}
}

func (s *Service) Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) error {
	select {
	case s.queue <- job{Type: jobType, TenantID: tenantID, Run: run}:
		return nil
	default:
		slog.Warn("job queue full", "jobType", jobType, "tenantId", tenantID)
		return ErrQueueFull
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, TenantID: tenantID, Run: run})
}

// RecomputeRanking runs a ranking recomputation synchronously, recording it
// as a job run.
func (s *Service) RecomputeRanking(ctx context.Context, tenantID string, period ranking.Period) (ranking.Snapshot, error) {
	var snap ranking.Snapshot
	_, err := s.RunNow(ctx, JobRankingRecompute, tenantID, func(ctx context.Context) (any, error) {
		var err error
		snap, err = s.Rankings.Recompute(ctx, tenantID, period)
		return summarize(period, snap), err
	})
	return snap, err
}

func (s *Service) recomputeJob(tenantID string, period ranking.Period) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		snap, err := s.Rankings.Recompute(ctx, tenantID, period)
		return summarize(period, snap), err
	}
}

func summarize(period ranking.Period, snap ranking.Snapshot) RecomputeSummary {
	out := RecomputeSummary{Period: period.String(), Employees: len(snap.Results)}
	for _, w := range snap.Warnings {
		out.Warnings = append(out.Warnings, w.Code)
	}
	return out
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "tenantId", j.TenantID, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (details any, err error) {
	start := s.Now()
	runID := s.startRun(ctx, j)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.Type, r)
		}
		status := StatusCompleted
		metricStatus := metrics.StatusSuccess
		if err != nil {
			status = StatusFailed
			metricStatus = metrics.StatusFailure
		}
		s.Metrics.ObserveJob(j.Type, metricStatus, s.Now().Sub(start))
		s.finishRun(ctx, runID, status, details, err)
	}()

	return j.Run(ctx)
}

func (s *Service) startRun(ctx context.Context, j job) string {
	if s.DB == nil {
		return ""
	}
	runID := ""
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (tenant_id, job_type, status)
    VALUES ($1,$2,$3)
    RETURNING id
  `, j.TenantID, j.Type, StatusRunning).Scan(&runID); err != nil {
		slog.Warn("job run insert failed", "jobType", j.Type, "err", err)
	}
	return runID
}

func (s *Service) finishRun(ctx context.Context, runID, status string, details any, runErr error) {
	if s.DB == nil || runID == "" {
		return
	}
	payload := map[string]any{"result": details}
	if runErr != nil {
		payload["error"] = runErr.Error()
	}
	detailsJSON, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("job details marshal failed", "err", err)
		detailsJSON = []byte("{}")
	}
	if _, err := s.DB.Exec(context.WithoutCancel(ctx), `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, detailsJSON, runID); err != nil {
		slog.Warn("job run update failed", "runId", runID, "err", err)
	}
}

func (s *Service) scheduleRankings(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.enqueueRankings(ctx)
		}
	}
}

// enqueueRankings queues a recomputation of the current month for every tenant.
func (s *Service) enqueueRankings(ctx context.Context) {
	tenants, err := s.listTenants(ctx)
	if err != nil {
		slog.Warn("ranking scheduler tenant lookup failed", "err", err)
		return
	}
	period := ranking.MonthOf(s.Now())
	for _, tenantID := range tenants {
		if err := s.Enqueue(JobRankingRecompute, tenantID, s.recomputeJob(tenantID, period)); err != nil {
			return
		}
	}
}

func (s *Service) listTenants(ctx context.Context) ([]string, error) {
	if s.DB == nil {
		return nil, nil
	}
	rows, err := s.DB.Query(ctx, `SELECT id FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
