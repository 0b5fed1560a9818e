package core

import "context"

type StoreAPI interface {
	ListEmployees(ctx context.Context, tenantID string, activeOnly bool) ([]Employee, error)
	GetEmployee(ctx context.Context, tenantID, employeeID string) (Employee, error)
	CreateEmployee(ctx context.Context, tenantID string, emp Employee) (Employee, error)
	UpdateEmployee(ctx context.Context, tenantID string, emp Employee) (Employee, error)
}

// RankingInvalidator is told whenever the roster changes so memoized
// rankings are not served stale.
type RankingInvalidator interface {
	InvalidateTenant(ctx context.Context, tenantID string)
}
