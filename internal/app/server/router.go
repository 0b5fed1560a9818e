package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"hsdash/internal/platform/metrics"
	"hsdash/internal/platform/tracing"
	"hsdash/internal/transport/http/api"
	audithandler "hsdash/internal/transport/http/handlers/audit"
	authhandler "hsdash/internal/transport/http/handlers/auth"
	corehandler "hsdash/internal/transport/http/handlers/core"
	rankinghandler "hsdash/internal/transport/http/handlers/ranking"
	reportshandler "hsdash/internal/transport/http/handlers/reports"
	"hsdash/internal/transport/http/middleware"
	"hsdash/internal/transport/http/shared"
)

// ReadinessCheck reports whether one dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Deps is everything the HTTP surface needs. App fills it from real
// services; tests substitute fakes.
type Deps struct {
	JWTSecret          string
	Production         bool
	FrontendDir        string
	MaxBodyBytes       int64
	RateLimitPerMinute int
	Tracing            bool

	Login       authhandler.LoginService
	Perms       middleware.PermissionStore
	Rankings    rankinghandler.RankingService
	Recompute   rankinghandler.Recomputer
	Idempotency rankinghandler.IdempotencyStore
	Employees   corehandler.EmployeeService
	Reports     reportshandler.ReportService
	AuditLog    audithandler.EventLister
	Auditor     shared.Auditor

	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Checks   map[string]ReadinessCheck
}

func NewRouter(d Deps) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(d.Metrics))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(d.Production))
	if d.MaxBodyBytes > 0 {
		router.Use(middleware.BodyLimit(d.MaxBodyBytes))
	}
	router.Use(middleware.Auth(d.JWTSecret))
	if d.RateLimitPerMinute > 0 {
		router.Use(middleware.RateLimit(d.RateLimitPerMinute, time.Minute))
		router.Use(middleware.SensitiveMutationRateLimit(d.RateLimitPerMinute, time.Minute))
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", readyHandler(d.Checks))
	if d.Registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(d.Login, d.Auditor)
		r.Post("/auth/login", authHandler.HandleLogin)

		rankinghandler.NewHandler(d.Rankings, d.Recompute, d.Auditor, d.Idempotency, d.Perms).RegisterRoutes(r)
		corehandler.NewHandler(d.Employees, d.Auditor, d.Perms).RegisterRoutes(r)
		reportshandler.NewHandler(d.Reports, d.Perms).RegisterRoutes(r)
		audithandler.NewHandler(d.AuditLog, d.Perms).RegisterRoutes(r)
	})

	if d.FrontendDir != "" {
		router.Mount("/", spaHandler{staticPath: d.FrontendDir, indexPath: "index.html"})
	}

	if !d.Tracing {
		return router
	}
	return otelhttp.NewHandler(router, tracing.ServiceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func readyHandler(checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		api.WriteJSON(w, status, api.Envelope{
			Success:   status == http.StatusOK,
			Data:      results,
			RequestID: middleware.GetRequestID(r.Context()),
		})
	}
}
