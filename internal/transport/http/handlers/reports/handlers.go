package reportshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hsdash/internal/domain/auth"
	"hsdash/internal/domain/ranking"
	"hsdash/internal/domain/reports"
	"hsdash/internal/transport/http/api"
	"hsdash/internal/transport/http/middleware"
	"hsdash/internal/transport/http/shared"
)

type ReportService interface {
	Dashboard(ctx context.Context, tenantID string, month time.Time) (reports.Dashboard, error)
	JobRuns(ctx context.Context, tenantID string, filter reports.JobRunFilter, limit, offset int) ([]reports.JobRun, int, error)
	JobRun(ctx context.Context, tenantID, runID string) (reports.JobRun, error)
}

type Handler struct {
	Service ReportService
	Perms   middleware.PermissionStore
	Now     func() time.Time
}

func NewHandler(service ReportService, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermRankingRead, h.Perms)).Get("/dashboard", h.handleDashboard)
	})
	r.Route("/jobs", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermRankingRun, h.Perms)).Get("/runs", h.handleListRuns)
		r.With(middleware.RequirePermission(auth.PermRankingRun, h.Perms)).Get("/runs/{runID}", h.handleGetRun)
	})
}

// handleDashboard defaults to the current month; consolidated is not a
// single month and is rejected.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	period := ranking.MonthOf(h.Now())
	if raw := r.URL.Query().Get("period"); raw != "" {
		parsed, err := ranking.ParsePeriod(raw)
		if err != nil || parsed.IsConsolidated() {
			v := shared.NewValidator()
			v.Add("period", "must be YYYY-MM or YYYY-MM-DD")
			v.Reject(w, middleware.GetRequestID(r.Context()))
			return
		}
		period = parsed
	}

	dashboard, err := h.Service.Dashboard(r.Context(), user.TenantID, period.Start())
	if err != nil {
		slog.Warn("dashboard failed", "tenantId", user.TenantID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to build dashboard", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, dashboard, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	q := r.URL.Query()
	v := shared.NewValidator()
	from, err := shared.ParseTimeParam(q.Get("startedFrom"))
	if err != nil {
		v.Add("startedFrom", err.Error())
	}
	to, err := shared.ParseTimeParam(q.Get("startedTo"))
	if err != nil {
		v.Add("startedTo", err.Error())
	}
	if from != nil && to != nil && to.Before(*from) {
		v.Add("startedTo", "must not be before startedFrom")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	filter := reports.JobRunFilter{JobType: q.Get("jobType"), Status: q.Get("status"), StartedFrom: from, StartedTo: to}
	runs, total, err := h.Service.JobRuns(r.Context(), user.TenantID, filter, page.Limit, page.Offset)
	if err != nil {
		slog.Warn("job runs list failed", "tenantId", user.TenantID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to list job runs", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, runs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	run, err := h.Service.JobRun(r.Context(), user.TenantID, chi.URLParam(r, "runID"))
	if errors.Is(err, reports.ErrJobRunNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "job run not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		slog.Warn("job run lookup failed", "tenantId", user.TenantID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "job_run_failed", "failed to load job run", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, run, middleware.GetRequestID(r.Context()))
}
