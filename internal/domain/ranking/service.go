package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"hsdash/internal/platform/cache"
	"hsdash/internal/platform/metrics"
	"hsdash/internal/platform/tracing"
)

const tracerName = "hsdash/ranking"

// Service hosts the ranking engine: it gathers inputs, persists outcomes
// and memoizes monthly snapshots.
type Service struct {
	Store     StoreAPI
	Cache     cache.Store[Snapshot]
	CacheTTL  time.Duration
	BatchSize int
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

type Option func(*Service)

func WithCache(c cache.Store[Snapshot], ttl time.Duration) Option {
	return func(s *Service) {
		s.Cache = c
		s.CacheTTL = ttl
	}
}

func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.BatchSize = size
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.Metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.Now = now }
}

func NewService(store StoreAPI, opts ...Option) *Service {
	s := &Service{
		Store:     store,
		Cache:     cache.Noop[Snapshot]{},
		BatchSize: DefaultBatchSize,
		Now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func cacheKey(tenantID string, period Period) string {
	return tenantID + ":" + period.String()
}

// Ranking returns the ranking for the period. Monthly snapshots are served
// from cache unless refresh is set; the consolidated view is always
// computed and never stored.
func (s *Service) Ranking(ctx context.Context, tenantID string, period Period, refresh bool) (Snapshot, error) {
	if period.IsZero() {
		return Snapshot{}, ErrInvalidPeriod
	}
	if !period.IsConsolidated() && !refresh {
		snap, ok, err := s.Cache.Get(ctx, cacheKey(tenantID, period))
		if err != nil {
			slog.Warn("ranking cache read failed", "tenantId", tenantID, "period", period.String(), "err", err)
		}
		if ok {
			s.Metrics.IncCache(metrics.CacheHit)
			snap.Cached = true
			return snap, nil
		}
		s.Metrics.IncCache(metrics.CacheMiss)
	}
	return s.compute(ctx, tenantID, period)
}

// Recompute forces a fresh computation and persistence for the period.
func (s *Service) Recompute(ctx context.Context, tenantID string, period Period) (Snapshot, error) {
	return s.Ranking(ctx, tenantID, period, true)
}

func (s *Service) compute(ctx context.Context, tenantID string, period Period) (snap Snapshot, err error) {
	ctx, span := tracing.Tracer(tracerName).Start(ctx, "ranking.compute")
	span.SetAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("ranking.period", period.String()),
	)
	started := s.Now()
	defer func() {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusFailure
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		s.Metrics.ObserveRanking(period.Kind(), status, len(snap.Results), s.Now().Sub(started))
		span.End()
	}()

	in, err := s.gather(ctx, tenantID, period)
	if err != nil {
		return Snapshot{}, err
	}

	out := Compute(in)
	for _, w := range out.Warnings {
		slog.Warn("ranking configuration warning", "tenantId", tenantID, "period", period.String(), "code", w.Code, "message", w.Message)
		s.Metrics.IncRankingWarning(w.Code)
	}
	span.SetAttributes(attribute.Int("ranking.employees", len(out.Results)))

	if !period.IsConsolidated() {
		if err := s.persist(ctx, tenantID, out); err != nil {
			return Snapshot{}, err
		}
	}

	snap = Snapshot{
		Period:     period,
		Results:    nonNil(out.Results),
		Warnings:   out.Warnings,
		ComputedAt: s.Now().UTC(),
	}
	if !period.IsConsolidated() {
		if err := s.Cache.Set(ctx, cacheKey(tenantID, period), snap, s.CacheTTL); err != nil {
			slog.Warn("ranking cache write failed", "tenantId", tenantID, "period", period.String(), "err", err)
		}
		// the next month's rank variation is derived from this month's rows
		s.Invalidate(ctx, tenantID, period.Next())
	}
	return snap, nil
}

// gather fetches the independent inputs concurrently. Any failure aborts
// the run before anything is written.
func (s *Service) gather(ctx context.Context, tenantID string, period Period) (Input, error) {
	in := Input{Period: period}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		criteria, err := s.Store.ListCriteria(gctx, tenantID)
		if err != nil {
			return fmt.Errorf("fetch criteria: %w", err)
		}
		in.Criteria = criteria
		return nil
	})
	g.Go(func() error {
		scores, err := s.Store.ListRawScores(gctx, tenantID, period)
		if err != nil {
			return fmt.Errorf("fetch raw scores: %w", err)
		}
		in.RawScores = scores
		return nil
	})
	g.Go(func() error {
		employees, err := s.Store.ListActiveEmployees(gctx, tenantID)
		if err != nil {
			return fmt.Errorf("fetch employees: %w", err)
		}
		in.Employees = employees
		return nil
	})
	if !period.IsConsolidated() {
		g.Go(func() error {
			previous, err := s.Store.ListRanking(gctx, tenantID, period.Previous())
			if err != nil {
				return fmt.Errorf("fetch previous ranking: %w", err)
			}
			in.PreviousRanking = previous
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Input{}, err
	}
	return in, nil
}

func (s *Service) persist(ctx context.Context, tenantID string, out Outcome) error {
	if out.HasWarning(WarningNoActiveCriteria) {
		return nil
	}
	if len(out.Results) == 0 {
		if err := s.Store.ClearRanking(ctx, tenantID, out.Period); err != nil {
			return fmt.Errorf("clear ranking: %w", err)
		}
		return nil
	}
	if err := s.Store.ReplaceRanking(ctx, tenantID, out.Period, out.Results, out.UpdatedRawScores, s.BatchSize); err != nil {
		return fmt.Errorf("persist ranking: %w", err)
	}
	return nil
}

// Invalidate drops the memoized snapshot of one month.
func (s *Service) Invalidate(ctx context.Context, tenantID string, period Period) {
	if period.IsZero() || period.IsConsolidated() {
		return
	}
	if err := s.Cache.Delete(ctx, cacheKey(tenantID, period)); err != nil {
		slog.Warn("ranking cache invalidation failed", "tenantId", tenantID, "period", period.String(), "err", err)
	}
}

// InvalidateTenant drops every memoized snapshot of the tenant.
func (s *Service) InvalidateTenant(ctx context.Context, tenantID string) {
	if err := s.Cache.DeletePrefix(ctx, tenantID+":"); err != nil {
		slog.Warn("ranking cache invalidation failed", "tenantId", tenantID, "err", err)
	}
}

func (s *Service) ListCriteria(ctx context.Context, tenantID string) ([]Criterion, error) {
	return s.Store.ListCriteria(ctx, tenantID)
}

func (s *Service) GetCriterion(ctx context.Context, tenantID, criterionID string) (Criterion, error) {
	return s.Store.GetCriterion(ctx, tenantID, criterionID)
}

func (s *Service) CreateCriterion(ctx context.Context, tenantID string, c Criterion) (Criterion, error) {
	if err := validateCriterion(&c); err != nil {
		return Criterion{}, err
	}
	created, err := s.Store.CreateCriterion(ctx, tenantID, c)
	if err != nil {
		return Criterion{}, err
	}
	s.InvalidateTenant(ctx, tenantID)
	return created, nil
}

func (s *Service) UpdateCriterion(ctx context.Context, tenantID string, c Criterion) (Criterion, error) {
	if err := validateCriterion(&c); err != nil {
		return Criterion{}, err
	}
	updated, err := s.Store.UpdateCriterion(ctx, tenantID, c)
	if err != nil {
		return Criterion{}, err
	}
	s.InvalidateTenant(ctx, tenantID)
	return updated, nil
}

func (s *Service) DeleteCriterion(ctx context.Context, tenantID, criterionID string) error {
	if err := s.Store.DeleteCriterion(ctx, tenantID, criterionID); err != nil {
		return err
	}
	s.InvalidateTenant(ctx, tenantID)
	return nil
}

func (s *Service) WeightSummary(ctx context.Context, tenantID string) (WeightSummary, error) {
	criteria, err := s.Store.ListCriteria(ctx, tenantID)
	if err != nil {
		return WeightSummary{}, err
	}
	active := ActiveCriteria(criteria)
	total := WeightTotal(active)
	return WeightSummary{
		ActiveCount: len(active),
		Total:       total,
		Balanced:    len(active) > 0 && total >= ExpectedWeightSum-WeightTolerance && total <= ExpectedWeightSum+WeightTolerance,
	}, nil
}

func validateCriterion(c *Criterion) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Key = CriterionKey(strings.ToLower(strings.TrimSpace(string(c.Key))))
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidCriterion)
	case c.Weight < 0 || c.Weight > 100:
		return fmt.Errorf("%w: weight must be between 0 and 100", ErrInvalidCriterion)
	case c.Direction != DirectionHigherIsBetter && c.Direction != DirectionLowerIsBetter:
		return fmt.Errorf("%w: direction must be %s or %s", ErrInvalidCriterion, DirectionHigherIsBetter, DirectionLowerIsBetter)
	case !c.Key.Known():
		return fmt.Errorf("%w: unknown key %q", ErrInvalidCriterion, c.Key)
	}
	return nil
}

// ImportScores upserts raw measurements. Within one import a later entry
// for the same employee, criterion and month wins.
func (s *Service) ImportScores(ctx context.Context, tenantID string, inputs []ScoreInput) (int, error) {
	byID := map[string]int{}
	var scores []RawScore
	periods := map[string]Period{}
	for i, in := range inputs {
		period, err := ParsePeriod(in.Period)
		if err != nil {
			return 0, fmt.Errorf("%w: entry %d: %v", ErrInvalidScore, i, err)
		}
		if period.IsConsolidated() {
			return 0, fmt.Errorf("%w: entry %d: scores belong to a calendar month", ErrInvalidScore, i)
		}
		employeeID, err := canonicalID(in.EmployeeID)
		if err != nil {
			return 0, fmt.Errorf("%w: entry %d: employeeId %v", ErrInvalidScore, i, err)
		}
		criterionID, err := canonicalID(in.CriterionID)
		if err != nil {
			return 0, fmt.Errorf("%w: entry %d: criterionId %v", ErrInvalidScore, i, err)
		}
		rs := RawScore{
			ID:          ScoreID(employeeID, criterionID, period),
			EmployeeID:  employeeID,
			CriterionID: criterionID,
			Period:      period.Start(),
			RawValue:    in.RawValue,
		}
		if idx, ok := byID[rs.ID]; ok {
			scores[idx] = rs
			continue
		}
		byID[rs.ID] = len(scores)
		scores = append(scores, rs)
		periods[period.String()] = period
	}
	if len(scores) == 0 {
		return 0, nil
	}

	if err := s.Store.UpsertRawScores(ctx, tenantID, scores, s.BatchSize); err != nil {
		return 0, err
	}
	for _, p := range periods {
		s.Invalidate(ctx, tenantID, p)
	}
	return len(scores), nil
}

// canonicalID parses a UUID in any accepted spelling and returns its
// lowercase hyphenated form.
func canonicalID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", errors.New("must be a UUID")
	}
	return id.String(), nil
}

func (s *Service) ListScores(ctx context.Context, tenantID string, period Period) ([]RawScore, error) {
	if period.IsZero() {
		return nil, ErrInvalidPeriod
	}
	return s.Store.ListRawScores(ctx, tenantID, period)
}
