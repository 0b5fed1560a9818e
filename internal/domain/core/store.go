package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"hsdash/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const employeeColumns = "id, name, department, position, active, created_at, updated_at"

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(&emp.ID, &emp.Name, &emp.Department, &emp.Position, &emp.Active, &emp.CreatedAt, &emp.UpdatedAt)
	return emp, err
}

func (s *Store) ListEmployees(ctx context.Context, tenantID string, activeOnly bool) ([]Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees WHERE tenant_id = $1"
	if activeOnly {
		query += " AND active = true"
	}
	query += " ORDER BY name, id"

	rows, err := s.DB.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, tenantID, employeeID string) (Employee, error) {
	emp, err := scanEmployee(s.DB.QueryRow(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE tenant_id = $1 AND id = $2", tenantID, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	return emp, err
}

func (s *Store) CreateEmployee(ctx context.Context, tenantID string, emp Employee) (Employee, error) {
	return scanEmployee(s.DB.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, name, department, position, active)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING `+employeeColumns,
		tenantID, emp.Name, emp.Department, emp.Position, emp.Active))
}

func (s *Store) UpdateEmployee(ctx context.Context, tenantID string, emp Employee) (Employee, error) {
	out, err := scanEmployee(s.DB.QueryRow(ctx, `
    UPDATE employees
    SET name = $3, department = $4, position = $5, active = $6, updated_at = now()
    WHERE tenant_id = $1 AND id = $2
    RETURNING `+employeeColumns,
		tenantID, emp.ID, emp.Name, emp.Department, emp.Position, emp.Active))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	return out, err
}
