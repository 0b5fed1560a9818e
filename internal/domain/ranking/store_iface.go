package ranking

import "context"

type StoreAPI interface {
	ListCriteria(ctx context.Context, tenantID string) ([]Criterion, error)
	GetCriterion(ctx context.Context, tenantID, criterionID string) (Criterion, error)
	CreateCriterion(ctx context.Context, tenantID string, c Criterion) (Criterion, error)
	UpdateCriterion(ctx context.Context, tenantID string, c Criterion) (Criterion, error)
	DeleteCriterion(ctx context.Context, tenantID, criterionID string) error
	ListRawScores(ctx context.Context, tenantID string, period Period) ([]RawScore, error)
	UpsertRawScores(ctx context.Context, tenantID string, scores []RawScore, batchSize int) error
	ListActiveEmployees(ctx context.Context, tenantID string) ([]Employee, error)
	ListRanking(ctx context.Context, tenantID string, period Period) ([]Result, error)
	ReplaceRanking(ctx context.Context, tenantID string, period Period, results []Result, normalized []RawScore, batchSize int) error
	ClearRanking(ctx context.Context, tenantID string, period Period) error
}
