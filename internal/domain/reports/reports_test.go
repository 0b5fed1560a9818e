package reports

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestBuildJobRunsBaseQuery(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args := buildJobRunsBaseQuery("t1", JobRunFilter{JobType: " ranking_recompute ", Status: "failed", StartedFrom: &from})

	if len(args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(args))
	}
	if args[1] != "ranking_recompute" {
		t.Fatalf("expected trimmed job type, got %v", args[1])
	}
	for _, clause := range []string{"job_type = $2", "status = $3", "started_at >= $4"} {
		if !strings.Contains(query, clause) {
			t.Fatalf("expected %q in query %s", clause, query)
		}
	}
	if strings.Contains(query, "started_at <=") {
		t.Fatal("unexpected upper bound clause")
	}
}

func TestDecodeDetails(t *testing.T) {
	if got := decodeDetails(nil); len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
	got := decodeDetails([]byte(`{"result":{"employees":3}}`))
	if _, ok := got["result"]; !ok {
		t.Fatalf("expected result key, got %v", got)
	}
	if got := decodeDetails([]byte("not-json")); got["raw"] != "not-json" {
		t.Fatalf("expected raw fallback, got %v", got)
	}
}

type fakeStore struct {
	jobType string
	count   int
	err     error
}

func (f *fakeStore) Dashboard(ctx context.Context, tenantID string, month time.Time, jobType string) (Dashboard, error) {
	f.jobType = jobType
	return Dashboard{Period: month.Format("2006-01")}, nil
}

func (f *fakeStore) ListJobRuns(ctx context.Context, tenantID string, filter JobRunFilter, limit, offset int) ([]JobRun, error) {
	return []JobRun{{ID: "r1"}}, nil
}

func (f *fakeStore) CountJobRuns(ctx context.Context, tenantID string, filter JobRunFilter) (int, error) {
	return f.count, f.err
}

func (f *fakeStore) JobRunByID(ctx context.Context, tenantID, runID string) (JobRun, error) {
	return JobRun{}, ErrJobRunNotFound
}

func TestServiceUsesConfiguredJobType(t *testing.T) {
	store := &fakeStore{count: 7}
	svc := NewService(store, "ranking_recompute")

	d, err := svc.Dashboard(context.Background(), "t1", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Period != "2024-05" || store.jobType != "ranking_recompute" {
		t.Fatalf("unexpected dashboard %+v jobType=%q", d, store.jobType)
	}

	runs, total, err := svc.JobRuns(context.Background(), "t1", JobRunFilter{}, 10, 0)
	if err != nil || total != 7 || len(runs) != 1 {
		t.Fatalf("unexpected runs %v total=%d err=%v", runs, total, err)
	}

	store.err = errors.New("db down")
	if _, _, err := svc.JobRuns(context.Background(), "t1", JobRunFilter{}, 10, 0); err == nil {
		t.Fatal("expected count error")
	}
	if _, err := svc.JobRun(context.Background(), "t1", "x"); !errors.Is(err, ErrJobRunNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
