package corehandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hsdash/internal/domain/audit"
	"hsdash/internal/domain/auth"
	"hsdash/internal/domain/core"
	"hsdash/internal/transport/http/api"
	"hsdash/internal/transport/http/middleware"
	"hsdash/internal/transport/http/shared"
)

type EmployeeService interface {
	ListEmployees(ctx context.Context, tenantID string, activeOnly bool) ([]core.Employee, error)
	GetEmployee(ctx context.Context, tenantID, employeeID string) (core.Employee, error)
	CreateEmployee(ctx context.Context, tenantID string, emp core.Employee) (core.Employee, error)
	UpdateEmployee(ctx context.Context, tenantID string, emp core.Employee) (core.Employee, error)
}

type Handler struct {
	Service EmployeeService
	Audit   shared.Auditor
	Perms   middleware.PermissionStore
}

func NewHandler(service EmployeeService, auditor shared.Auditor, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Audit: auditor, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleListEmployees)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreateEmployee)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleGetEmployee)
			r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/", h.handleUpdateEmployee)
		})
	})
}

type employeeRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Department string `json:"department" validate:"max=120"`
	Position   string `json:"position" validate:"max=120"`
	Active     *bool  `json:"active"`
}

func (p employeeRequest) employee(id string) core.Employee {
	active := true
	if p.Active != nil {
		active = *p.Active
	}
	return core.Employee{ID: id, Name: p.Name, Department: p.Department, Position: p.Position, Active: active}
}

func fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, core.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
	case errors.Is(err, core.ErrInvalidEmployee):
		api.Fail(w, http.StatusBadRequest, "invalid_request", err.Error(), reqID)
	default:
		slog.Warn(message, "path", r.URL.Path, "requestId", reqID, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"user": map[string]string{
			"id":       user.UserID,
			"tenantId": user.TenantID,
			"roleId":   user.RoleID,
			"role":     user.RoleName,
		},
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))

	employees, err := h.Service.ListEmployees(r.Context(), user.TenantID, activeOnly)
	if err != nil {
		fail(w, r, err, "employee_list_failed", "failed to list employees")
		return
	}
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	emp, err := h.Service.GetEmployee(r.Context(), user.TenantID, chi.URLParam(r, "employeeID"))
	if err != nil {
		fail(w, r, err, "employee_get_failed", "failed to load employee")
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) decodeEmployee(w http.ResponseWriter, r *http.Request) (employeeRequest, bool) {
	var payload employeeRequest
	reqID := middleware.GetRequestID(r.Context())
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return payload, false
	}
	v := shared.NewValidator()
	v.Struct("", payload)
	if v.Reject(w, reqID) {
		return payload, false
	}
	return payload, true
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	payload, ok := h.decodeEmployee(w, r)
	if !ok {
		return
	}

	created, err := h.Service.CreateEmployee(r.Context(), user.TenantID, payload.employee(""))
	if err != nil {
		fail(w, r, err, "employee_create_failed", "failed to create employee")
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, user.TenantID, user.UserID, audit.ActionEmployeeCreate, audit.EntityEmployee, created.ID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, created)
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	payload, ok := h.decodeEmployee(w, r)
	if !ok {
		return
	}

	before, err := h.Service.GetEmployee(r.Context(), user.TenantID, employeeID)
	if err != nil {
		fail(w, r, err, "employee_update_failed", "failed to load employee")
		return
	}
	updated, err := h.Service.UpdateEmployee(r.Context(), user.TenantID, payload.employee(employeeID))
	if err != nil {
		fail(w, r, err, "employee_update_failed", "failed to update employee")
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, user.TenantID, user.UserID, audit.ActionEmployeeUpdate, audit.EntityEmployee, employeeID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, updated)
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}
