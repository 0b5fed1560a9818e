package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"hsdash/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const criterionColumns = "id, key, name, weight::float8, direction, active, display_order"

func scanCriterion(row pgx.Row) (Criterion, error) {
	var c Criterion
	var key string
	err := row.Scan(&c.ID, &key, &c.Name, &c.Weight, &c.Direction, &c.Active, &c.DisplayOrder)
	c.Key = CriterionKey(key)
	return c, err
}

func (s *Store) ListCriteria(ctx context.Context, tenantID string) ([]Criterion, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+criterionColumns+`
    FROM criteria
    WHERE tenant_id = $1
    ORDER BY display_order, name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Criterion
	for rows.Next() {
		c, err := scanCriterion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCriterion(ctx context.Context, tenantID, criterionID string) (Criterion, error) {
	c, err := scanCriterion(s.DB.QueryRow(ctx, `
    SELECT `+criterionColumns+`
    FROM criteria
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, criterionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Criterion{}, ErrNotFound
	}
	return c, err
}

func (s *Store) CreateCriterion(ctx context.Context, tenantID string, c Criterion) (Criterion, error) {
	return scanCriterion(s.DB.QueryRow(ctx, `
    INSERT INTO criteria (tenant_id, key, name, weight, direction, active, display_order)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING `+criterionColumns,
		tenantID, string(c.Key), c.Name, c.Weight, c.Direction, c.Active, c.DisplayOrder))
}

func (s *Store) UpdateCriterion(ctx context.Context, tenantID string, c Criterion) (Criterion, error) {
	out, err := scanCriterion(s.DB.QueryRow(ctx, `
    UPDATE criteria
    SET key = $3, name = $4, weight = $5, direction = $6, active = $7, display_order = $8, updated_at = now()
    WHERE tenant_id = $1 AND id = $2
    RETURNING `+criterionColumns,
		tenantID, c.ID, string(c.Key), c.Name, c.Weight, c.Direction, c.Active, c.DisplayOrder))
	if errors.Is(err, pgx.ErrNoRows) {
		return Criterion{}, ErrNotFound
	}
	return out, err
}

func (s *Store) DeleteCriterion(ctx context.Context, tenantID, criterionID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM criteria WHERE tenant_id = $1 AND id = $2", tenantID, criterionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRawScores returns the month's records, or every record for the
// consolidated period.
func (s *Store) ListRawScores(ctx context.Context, tenantID string, period Period) ([]RawScore, error) {
	query := `
    SELECT id, employee_id, criterion_id, period, raw_value, normalized_score
    FROM raw_scores
    WHERE tenant_id = $1`
	args := []any{tenantID}
	if !period.IsConsolidated() {
		query += " AND period = $2"
		args = append(args, period.Start())
	}
	query += " ORDER BY period, id"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RawScore
	for rows.Next() {
		var rs RawScore
		if err := rows.Scan(&rs.ID, &rs.EmployeeID, &rs.CriterionID, &rs.Period, &rs.RawValue, &rs.NormalizedScore); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// UpsertRawScores writes records keyed by their composite id. A changed raw
// value clears the stale normalized score.
func (s *Store) UpsertRawScores(ctx context.Context, tenantID string, scores []RawScore, batchSize int) error {
	for _, chunk := range Chunk(scores, batchSize) {
		batch := &pgx.Batch{}
		for _, rs := range chunk {
			batch.Queue(`
        INSERT INTO raw_scores (id, tenant_id, employee_id, criterion_id, period, raw_value)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (tenant_id, id) DO UPDATE
        SET raw_value = EXCLUDED.raw_value,
            normalized_score = CASE WHEN raw_scores.raw_value = EXCLUDED.raw_value THEN raw_scores.normalized_score END,
            updated_at = now()
      `, rs.ID, tenantID, rs.EmployeeID, rs.CriterionID, rs.Period, rs.RawValue)
		}
		if err := sendBatch(ctx, s.DB, batch); err != nil {
			return fmt.Errorf("upsert raw scores: %w", scoreWriteError(err))
		}
	}
	return nil
}

func (s *Store) ListActiveEmployees(ctx context.Context, tenantID string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, department, position, active
    FROM employees
    WHERE tenant_id = $1 AND active = true
    ORDER BY name, id
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Department, &e.Position, &e.Active); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ListRanking(ctx context.Context, tenantID string, period Period) ([]Result, error) {
	if period.IsConsolidated() || period.IsZero() {
		return nil, nil
	}
	rows, err := s.DB.Query(ctx, `
    SELECT employee_id, employee_name, department, position, total_score, rank_position,
           previous_rank, rank_variation, contributions, strengths, weaknesses, suggestions
    FROM rankings
    WHERE tenant_id = $1 AND period = $2
    ORDER BY rank_position
  `, tenantID, period.Start())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var contributions, strengths, weaknesses, suggestions []byte
		if err := rows.Scan(&r.EmployeeID, &r.EmployeeName, &r.Department, &r.Position, &r.TotalScore, &r.RankPosition,
			&r.PreviousRank, &r.RankVariation, &contributions, &strengths, &weaknesses, &suggestions); err != nil {
			return nil, err
		}
		if err := decodeJSON(contributions, &r.Contributions); err != nil {
			return nil, err
		}
		if err := decodeJSON(strengths, &r.Strengths); err != nil {
			return nil, err
		}
		if err := decodeJSON(weaknesses, &r.Weaknesses); err != nil {
			return nil, err
		}
		if err := decodeJSON(suggestions, &r.Suggestions); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplaceRanking writes normalized scores back and swaps the month's
// ranking rows in a single transaction.
func (s *Store) ReplaceRanking(ctx context.Context, tenantID string, period Period, results []Result, normalized []RawScore, batchSize int) error {
	if period.IsConsolidated() {
		return fmt.Errorf("%w: consolidated rankings are not persisted", ErrInvalidPeriod)
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, chunk := range Chunk(normalized, batchSize) {
		batch := &pgx.Batch{}
		for _, rs := range chunk {
			batch.Queue(`
        UPDATE raw_scores SET normalized_score = $3, updated_at = now()
        WHERE tenant_id = $1 AND id = $2
      `, tenantID, rs.ID, rs.NormalizedScore)
		}
		if err := sendBatch(ctx, tx, batch); err != nil {
			return fmt.Errorf("update normalized scores: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM rankings WHERE tenant_id = $1 AND period = $2", tenantID, period.Start()); err != nil {
		return fmt.Errorf("delete rankings: %w", err)
	}

	for _, chunk := range Chunk(results, batchSize) {
		batch := &pgx.Batch{}
		for _, r := range chunk {
			contributions, strengths, weaknesses, suggestions, err := encodeAnnotations(r)
			if err != nil {
				return err
			}
			batch.Queue(`
        INSERT INTO rankings (tenant_id, period, employee_id, employee_name, department, position, total_score,
                              rank_position, previous_rank, rank_variation, contributions, strengths, weaknesses, suggestions)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
      `, tenantID, period.Start(), r.EmployeeID, r.EmployeeName, r.Department, r.Position, r.TotalScore,
				r.RankPosition, r.PreviousRank, r.RankVariation, contributions, strengths, weaknesses, suggestions)
		}
		if err := sendBatch(ctx, tx, batch); err != nil {
			return fmt.Errorf("insert rankings: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) ClearRanking(ctx context.Context, tenantID string, period Period) error {
	if period.IsConsolidated() {
		return nil
	}
	_, err := s.DB.Exec(ctx, "DELETE FROM rankings WHERE tenant_id = $1 AND period = $2", tenantID, period.Start())
	return err
}

const (
	pgForeignKeyViolation  = "23503"
	pgInvalidTextRepresent = "22P02"
)

// scoreWriteError turns references to unknown employees or criteria into
// ErrInvalidScore.
func scoreWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: unknown employee or criterion (%s)", ErrInvalidScore, pgErr.ConstraintName)
		case pgInvalidTextRepresent:
			return fmt.Errorf("%w: %s", ErrInvalidScore, pgErr.Message)
		}
	}
	return err
}

func sendBatch(ctx context.Context, q querier.Querier, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	results := q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	return results.Close()
}

func encodeAnnotations(r Result) (contributions, strengths, weaknesses, suggestions []byte, err error) {
	if contributions, err = json.Marshal(nonNil(r.Contributions)); err != nil {
		return
	}
	if strengths, err = json.Marshal(nonNil(r.Strengths)); err != nil {
		return
	}
	if weaknesses, err = json.Marshal(nonNil(r.Weaknesses)); err != nil {
		return
	}
	suggestions, err = json.Marshal(nonNil(r.Suggestions))
	return
}

func decodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
