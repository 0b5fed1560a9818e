package ranking

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hsdash/internal/platform/db"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool, filepath.Join("..", "..", "..", "migrations")))
	return pool
}

func TestStoreReplaceRankingRoundTrip(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	var tenantID string
	require.NoError(t, pool.QueryRow(ctx,
		"INSERT INTO tenants (name) VALUES ($1) RETURNING id", "ranking-store-"+time.Now().Format("150405.000000"),
	).Scan(&tenantID))
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), "DELETE FROM tenants WHERE id = $1", tenantID) })

	var employees []string
	for _, name := range []string{"Ana", "Bruno", "Carla"} {
		var id string
		require.NoError(t, pool.QueryRow(ctx,
			"INSERT INTO employees (tenant_id, name, department) VALUES ($1,$2,'Ops') RETURNING id", tenantID, name,
		).Scan(&id))
		employees = append(employees, id)
	}

	store := NewStore(pool)
	crit, err := store.CreateCriterion(ctx, tenantID, Criterion{
		Key: KeyAttendance, Name: "Attendance", Weight: 100, Direction: DirectionHigherIsBetter, Active: true,
	})
	require.NoError(t, err)

	var scores []RawScore
	for i, id := range employees {
		scores = append(scores, RawScore{
			ID: ScoreID(id, crit.ID, october), EmployeeID: id, CriterionID: crit.ID,
			Period: october.Start(), RawValue: float64(10 * (i + 1)),
		})
	}
	require.NoError(t, store.UpsertRawScores(ctx, tenantID, scores, 2))

	svc := NewService(store, WithBatchSize(2))
	snap, err := svc.Recompute(ctx, tenantID, october)
	require.NoError(t, err)
	require.Len(t, snap.Results, 3)

	persisted, err := store.ListRanking(ctx, tenantID, october)
	require.NoError(t, err)
	require.Len(t, persisted, 3)
	assert.Equal(t, employees[2], persisted[0].EmployeeID)
	assert.Equal(t, 1, persisted[0].RankPosition)
	assert.Equal(t, []string{"Attendance"}, persisted[0].Strengths)

	stored, err := store.ListRawScores(ctx, tenantID, october)
	require.NoError(t, err)
	for _, rs := range stored {
		require.NotNil(t, rs.NormalizedScore)
	}

	_, err = pool.Exec(ctx, "UPDATE employees SET active = false WHERE tenant_id = $1", tenantID)
	require.NoError(t, err)
	snap, err = svc.Recompute(ctx, tenantID, october)
	require.NoError(t, err)
	assert.Empty(t, snap.Results)
	persisted, err = store.ListRanking(ctx, tenantID, october)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestStoreUpsertUnknownEmployeeIsInvalidScore(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	var tenantID string
	require.NoError(t, pool.QueryRow(ctx,
		"INSERT INTO tenants (name) VALUES ($1) RETURNING id", "ranking-fk-"+time.Now().Format("150405.000000"),
	).Scan(&tenantID))
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), "DELETE FROM tenants WHERE id = $1", tenantID) })

	store := NewStore(pool)
	crit, err := store.CreateCriterion(ctx, tenantID, Criterion{
		Name: "Attendance", Weight: 100, Direction: DirectionHigherIsBetter, Active: true,
	})
	require.NoError(t, err)

	missing := "6f1c2a4e-9b3d-4c1e-8a2f-0000000000ff"
	err = store.UpsertRawScores(ctx, tenantID, []RawScore{{
		ID: ScoreID(missing, crit.ID, october), EmployeeID: missing, CriterionID: crit.ID,
		Period: october.Start(), RawValue: 1,
	}}, 10)
	assert.ErrorIs(t, err, ErrInvalidScore)
}
