package core

import (
	"context"
	"fmt"
	"strings"
)

type Service struct {
	store       StoreAPI
	invalidator RankingInvalidator
}

func NewService(store StoreAPI, invalidator RankingInvalidator) *Service {
	return &Service{store: store, invalidator: invalidator}
}

func (s *Service) ListEmployees(ctx context.Context, tenantID string, activeOnly bool) ([]Employee, error) {
	return s.store.ListEmployees(ctx, tenantID, activeOnly)
}

func (s *Service) GetEmployee(ctx context.Context, tenantID, employeeID string) (Employee, error) {
	return s.store.GetEmployee(ctx, tenantID, employeeID)
}

func (s *Service) CreateEmployee(ctx context.Context, tenantID string, emp Employee) (Employee, error) {
	if err := normalize(&emp); err != nil {
		return Employee{}, err
	}
	created, err := s.store.CreateEmployee(ctx, tenantID, emp)
	if err != nil {
		return Employee{}, err
	}
	s.invalidate(ctx, tenantID)
	return created, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, tenantID string, emp Employee) (Employee, error) {
	if err := normalize(&emp); err != nil {
		return Employee{}, err
	}
	updated, err := s.store.UpdateEmployee(ctx, tenantID, emp)
	if err != nil {
		return Employee{}, err
	}
	s.invalidate(ctx, tenantID)
	return updated, nil
}

func (s *Service) invalidate(ctx context.Context, tenantID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateTenant(ctx, tenantID)
	}
}

func normalize(emp *Employee) error {
	emp.Name = strings.TrimSpace(emp.Name)
	emp.Department = strings.TrimSpace(emp.Department)
	emp.Position = strings.TrimSpace(emp.Position)
	if emp.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidEmployee)
	}
	return nil
}
