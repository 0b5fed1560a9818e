package ranking

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hsdash/internal/platform/cache"
)

type fakeStore struct {
	mu        sync.Mutex
	criteria  []Criterion
	scores    []RawScore
	employees []Employee
	rankings  map[string][]Result

	listScoresErr error
	replaceCalls  int
	clearCalls    int
	lastBatch     int
	normalized    []RawScore
	upserted      []RawScore
	computeCount  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rankings: map[string][]Result{}}
}

func (f *fakeStore) ListCriteria(context.Context, string) ([]Criterion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.computeCount++
	return append([]Criterion(nil), f.criteria...), nil
}

func (f *fakeStore) GetCriterion(_ context.Context, _ string, id string) (Criterion, error) {
	for _, c := range f.criteria {
		if c.ID == id {
			return c, nil
		}
	}
	return Criterion{}, ErrNotFound
}

func (f *fakeStore) CreateCriterion(_ context.Context, _ string, c Criterion) (Criterion, error) {
	c.ID = "c-new"
	f.criteria = append(f.criteria, c)
	return c, nil
}

func (f *fakeStore) UpdateCriterion(_ context.Context, _ string, c Criterion) (Criterion, error) {
	for i := range f.criteria {
		if f.criteria[i].ID == c.ID {
			f.criteria[i] = c
			return c, nil
		}
	}
	return Criterion{}, ErrNotFound
}

func (f *fakeStore) DeleteCriterion(_ context.Context, _ string, id string) error {
	for i := range f.criteria {
		if f.criteria[i].ID == id {
			f.criteria = append(f.criteria[:i], f.criteria[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) ListRawScores(_ context.Context, _ string, period Period) ([]RawScore, error) {
	if f.listScoresErr != nil {
		return nil, f.listScoresErr
	}
	var out []RawScore
	for _, rs := range f.scores {
		if period.Contains(rs.Period) {
			out = append(out, rs)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertRawScores(_ context.Context, _ string, scores []RawScore, batchSize int) error {
	f.lastBatch = batchSize
	f.upserted = append(f.upserted, scores...)
	return nil
}

func (f *fakeStore) ListActiveEmployees(context.Context, string) ([]Employee, error) {
	return append([]Employee(nil), f.employees...), nil
}

func (f *fakeStore) ListRanking(_ context.Context, _ string, period Period) ([]Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rankings[period.String()], nil
}

func (f *fakeStore) ReplaceRanking(_ context.Context, _ string, period Period, results []Result, normalized []RawScore, batchSize int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaceCalls++
	f.lastBatch = batchSize
	f.normalized = normalized
	f.rankings[period.String()] = results
	return nil
}

func (f *fakeStore) ClearRanking(_ context.Context, _ string, period Period) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	delete(f.rankings, period.String())
	return nil
}

func seededStore() *fakeStore {
	store := newFakeStore()
	store.criteria = []Criterion{attendance(100)}
	store.employees = staff("a", "b")
	store.scores = []RawScore{raw("a", "c-att", october, 90), raw("b", "c-att", october, 70)}
	return store
}

func newTestService(store *fakeStore) *Service {
	return NewService(store,
		WithCache(cache.NewMemory[Snapshot](16, cache.WithClone(Snapshot.Clone)), time.Minute),
		WithBatchSize(2),
	)
}

func TestRankingPersistsAndCaches(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	svc := newTestService(store)

	snap, err := svc.Ranking(ctx, "t1", october, false)
	require.NoError(t, err)
	require.Len(t, snap.Results, 2)
	assert.False(t, snap.Cached)
	assert.Equal(t, "a", snap.Results[0].EmployeeID)
	assert.Equal(t, 1, store.replaceCalls)
	assert.Equal(t, 2, store.lastBatch)
	require.Len(t, store.normalized, 2)

	again, err := svc.Ranking(ctx, "t1", october, false)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, 1, store.replaceCalls)
	assert.Equal(t, snap.Results, again.Results)

	_, err = svc.Ranking(ctx, "t1", october, true)
	require.NoError(t, err)
	assert.Equal(t, 2, store.replaceCalls)
}

func TestRankingUsesPreviousMonth(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	store.rankings[october.Previous().String()] = []Result{
		{EmployeeID: "a", RankPosition: 2},
		{EmployeeID: "b", RankPosition: 1},
	}
	svc := newTestService(store)

	snap, err := svc.Recompute(ctx, "t1", october)
	require.NoError(t, err)
	require.NotNil(t, snap.Results[0].RankVariation)
	assert.Equal(t, 1, *snap.Results[0].RankVariation)
	assert.Equal(t, -1, *snap.Results[1].RankVariation)
}

func TestRankingConsolidatedIsNeverStored(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	store.scores = append(store.scores, raw("b", "c-att", october.Previous(), 50))
	svc := newTestService(store)

	snap, err := svc.Ranking(ctx, "t1", Consolidated(), false)
	require.NoError(t, err)
	require.Len(t, snap.Results, 2)
	assert.Equal(t, "b", snap.Results[0].EmployeeID)
	assert.Zero(t, store.replaceCalls)
	assert.Zero(t, store.clearCalls)

	again, err := svc.Ranking(ctx, "t1", Consolidated(), false)
	require.NoError(t, err)
	assert.False(t, again.Cached)
}

func TestRankingEmptyRosterClearsRows(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	store.employees = nil
	store.rankings[october.String()] = []Result{{EmployeeID: "gone", RankPosition: 1}}
	svc := newTestService(store)

	snap, err := svc.Ranking(ctx, "t1", october, true)
	require.NoError(t, err)
	assert.Empty(t, snap.Results)
	assert.NotNil(t, snap.Results)
	assert.Equal(t, 1, store.clearCalls)
	assert.NotContains(t, store.rankings, october.String())
}

func TestRankingNoCriteriaLeavesRowsAlone(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	store.criteria = nil
	svc := newTestService(store)

	snap, err := svc.Ranking(ctx, "t1", october, true)
	require.NoError(t, err)
	assert.Empty(t, snap.Results)
	require.Len(t, snap.Warnings, 1)
	assert.Equal(t, WarningNoActiveCriteria, snap.Warnings[0].Code)
	assert.Zero(t, store.clearCalls)
	assert.Zero(t, store.replaceCalls)
}

func TestRankingFetchErrorPersistsNothing(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	boom := errors.New("connection reset")
	store.listScoresErr = boom
	svc := newTestService(store)

	_, err := svc.Ranking(ctx, "t1", october, true)
	require.ErrorIs(t, err, boom)
	assert.Zero(t, store.replaceCalls)
}

func TestRankingRejectsZeroPeriod(t *testing.T) {
	svc := newTestService(seededStore())
	_, err := svc.Ranking(context.Background(), "t1", Period{}, false)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

const (
	empA    = "6f1c2a4e-9b3d-4c1e-8a2f-00000000000a"
	empB    = "6f1c2a4e-9b3d-4c1e-8a2f-00000000000b"
	critAtt = "3f9a1c2e-8b4d-4e6f-a0b1-c2d3e4f5a6b8"
)

func uuidStore() *fakeStore {
	store := newFakeStore()
	crit := attendance(100)
	crit.ID = critAtt
	store.criteria = []Criterion{crit}
	store.employees = staff(empA, empB)
	return store
}

func TestImportScoresInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	store := uuidStore()
	svc := newTestService(store)

	_, err := svc.Ranking(ctx, "t1", october, false)
	require.NoError(t, err)

	n, err := svc.ImportScores(ctx, "t1", []ScoreInput{
		{EmployeeID: empA, CriterionID: critAtt, Period: "2025-10-03", RawValue: 10},
		{EmployeeID: empA, CriterionID: critAtt, Period: "2025-10", RawValue: 40},
		{EmployeeID: empB, CriterionID: critAtt, Period: "2025-10", RawValue: 80},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, store.upserted, 2)
	assert.Equal(t, empA+":"+critAtt+":2025-10", store.upserted[0].ID)
	assert.Equal(t, 40.0, store.upserted[0].RawValue)

	store.scores = store.upserted
	snap, err := svc.Ranking(ctx, "t1", october, false)
	require.NoError(t, err)
	assert.False(t, snap.Cached)
	assert.Equal(t, empB, snap.Results[0].EmployeeID)
}

func TestImportScoresCanonicalizesIDs(t *testing.T) {
	store := uuidStore()
	svc := newTestService(store)

	n, err := svc.ImportScores(context.Background(), "t1", []ScoreInput{
		{EmployeeID: empA, CriterionID: critAtt, Period: "2025-10", RawValue: 10},
		{EmployeeID: strings.ToUpper(empA), CriterionID: " " + strings.ToUpper(critAtt) + " ", Period: "2025-10", RawValue: 30},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.upserted, 1)
	got := store.upserted[0]
	assert.Equal(t, empA+":"+critAtt+":2025-10", got.ID)
	assert.Equal(t, empA, got.EmployeeID)
	assert.Equal(t, critAtt, got.CriterionID)
	assert.Equal(t, 30.0, got.RawValue)
}

func TestImportScoresValidation(t *testing.T) {
	svc := newTestService(uuidStore())
	ctx := context.Background()

	cases := []ScoreInput{
		{EmployeeID: empA, CriterionID: critAtt, Period: "consolidated"},
		{EmployeeID: empA, CriterionID: critAtt, Period: "nope"},
		{EmployeeID: " ", CriterionID: critAtt, Period: "2025-10"},
		{EmployeeID: "a", CriterionID: critAtt, Period: "2025-10"},
		{EmployeeID: empA, CriterionID: "c-att", Period: "2025-10"},
	}
	for _, in := range cases {
		_, err := svc.ImportScores(ctx, "t1", []ScoreInput{in})
		assert.ErrorIs(t, err, ErrInvalidScore, "input %+v", in)
	}
}

func TestCriteriaMutationsInvalidateTenant(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	svc := newTestService(store)

	_, err := svc.Ranking(ctx, "t1", october, false)
	require.NoError(t, err)

	updated := attendance(100)
	updated.Direction = DirectionLowerIsBetter
	_, err = svc.UpdateCriterion(ctx, "t1", updated)
	require.NoError(t, err)

	snap, err := svc.Ranking(ctx, "t1", october, false)
	require.NoError(t, err)
	assert.False(t, snap.Cached)
	assert.Equal(t, "b", snap.Results[0].EmployeeID)
}

func TestCreateCriterionValidation(t *testing.T) {
	svc := newTestService(seededStore())
	ctx := context.Background()

	_, err := svc.CreateCriterion(ctx, "t1", Criterion{Name: "", Weight: 10, Direction: DirectionHigherIsBetter})
	assert.ErrorIs(t, err, ErrInvalidCriterion)
	_, err = svc.CreateCriterion(ctx, "t1", Criterion{Name: "X", Weight: 120, Direction: DirectionHigherIsBetter})
	assert.ErrorIs(t, err, ErrInvalidCriterion)
	_, err = svc.CreateCriterion(ctx, "t1", Criterion{Name: "X", Weight: 10, Direction: "sideways"})
	assert.ErrorIs(t, err, ErrInvalidCriterion)
	_, err = svc.CreateCriterion(ctx, "t1", Criterion{Name: "X", Key: "morale", Weight: 10, Direction: DirectionHigherIsBetter})
	assert.ErrorIs(t, err, ErrInvalidCriterion)

	created, err := svc.CreateCriterion(ctx, "t1", Criterion{Name: " Punctuality ", Key: "Punctuality", Weight: 10, Direction: DirectionHigherIsBetter, Active: true})
	require.NoError(t, err)
	assert.Equal(t, "Punctuality", created.Name)
	assert.Equal(t, KeyPunctuality, created.Key)
}

func TestWeightSummary(t *testing.T) {
	store := seededStore()
	store.criteria = append(store.criteria, incidents(20))
	svc := newTestService(store)

	summary, err := svc.WeightSummary(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ActiveCount)
	assert.Equal(t, 120.0, summary.Total)
	assert.False(t, summary.Balanced)

	require.NoError(t, svc.DeleteCriterion(context.Background(), "t1", "c-inc"))
	summary, err = svc.WeightSummary(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, summary.Balanced)
}

func TestConcurrentRankingsForDifferentPeriods(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	svc := newTestService(store)

	var wg sync.WaitGroup
	for _, p := range []Period{october, october.Previous(), october.Next()} {
		wg.Add(1)
		go func(p Period) {
			defer wg.Done()
			_, err := svc.Ranking(ctx, "t1", p, false)
			assert.NoError(t, err)
		}(p)
	}
	wg.Wait()
}

func TestReportRendersPDF(t *testing.T) {
	svc := newTestService(seededStore())
	var buf bytes.Buffer
	require.NoError(t, svc.Report(context.Background(), "t1", october, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestRenderPDFEmpty(t *testing.T) {
	var buf bytes.Buffer
	snap := Snapshot{
		Period:   Consolidated(),
		Warnings: []Warning{{Code: WarningNoActiveCriteria, Message: "no active criteria configured"}},
	}
	require.NoError(t, RenderPDF(snap, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestChunk(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Chunk(items, 2))
	assert.Len(t, Chunk(items, 0), 1)
	assert.Empty(t, Chunk([]int{}, 3))
}

func TestCachedSnapshotIsIsolatedFromCallers(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(seededStore())

	first, err := svc.Ranking(ctx, "t1", october, false)
	require.NoError(t, err)
	first.Results[0].EmployeeID = "mutated"
	first.Results[0].Strengths[0] = "mutated"

	cached, err := svc.Ranking(ctx, "t1", october, false)
	require.NoError(t, err)
	require.True(t, cached.Cached)
	assert.Equal(t, "a", cached.Results[0].EmployeeID)
	assert.Equal(t, []string{"Attendance"}, cached.Results[0].Strengths)
	cached.Results[1].Weaknesses = append(cached.Results[1].Weaknesses, "mutated")

	again, err := svc.Ranking(ctx, "t1", october, false)
	require.NoError(t, err)
	assert.NotContains(t, again.Results[1].Weaknesses, "mutated")
}
