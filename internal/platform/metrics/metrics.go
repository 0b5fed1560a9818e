package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricHTTPRequestsTotal   = "http_requests_total"
	MetricHTTPRequestDuration = "http_request_duration_seconds"
	MetricRankingRunsTotal    = "ranking_runs_total"
	MetricRankingRunDuration  = "ranking_run_duration_seconds"
	MetricRankingWarnings     = "ranking_warnings_total"
	MetricRankingEmployees    = "ranking_ranked_employees"
	MetricCacheRequestsTotal  = "ranking_cache_requests_total"
	MetricJobsTotal           = "jobs_total"
	MetricJobsDuration        = "jobs_duration_seconds"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Metrics holds every collector exported on /metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	rankingRuns      *prometheus.CounterVec
	rankingDuration  *prometheus.HistogramVec
	rankingWarnings  *prometheus.CounterVec
	rankingEmployees *prometheus.GaugeVec
	cacheRequests    *prometheus.CounterVec
	jobsTotal        *prometheus.CounterVec
	jobsDuration     *prometheus.HistogramVec
}

// New creates the collectors without registering them.
func New() *Metrics {
	return &Metrics{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "Total HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		rankingRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankingRunsTotal,
				Help: "Ranking computations by period kind and status",
			},
			[]string{"kind", "status"},
		),
		rankingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRankingRunDuration,
				Help:    "Duration of ranking computations including fetch and persistence",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"kind"},
		),
		rankingWarnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankingWarnings,
				Help: "Configuration warnings raised by ranking computations",
			},
			[]string{"code"},
		),
		rankingEmployees: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricRankingEmployees,
				Help: "Employees ranked in the latest computation per period kind",
			},
			[]string{"kind"},
		),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCacheRequestsTotal,
				Help: "Ranking cache lookups by result",
			},
			[]string{"result"},
		),
		jobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricJobsTotal,
				Help: "Background job executions by type and status",
			},
			[]string{"job_type", "status"},
		),
		jobsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricJobsDuration,
				Help:    "Background job duration in seconds by type",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"job_type"},
		),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors, mostly for tests.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.httpRequests,
		m.httpDuration,
		m.rankingRuns,
		m.rankingDuration,
		m.rankingWarnings,
		m.rankingEmployees,
		m.cacheRequests,
		m.jobsTotal,
		m.jobsDuration,
	}
}

func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) ObserveRanking(kind, status string, employees int, duration time.Duration) {
	if m == nil {
		return
	}
	m.rankingRuns.WithLabelValues(kind, status).Inc()
	m.rankingDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if status == StatusSuccess {
		m.rankingEmployees.WithLabelValues(kind).Set(float64(employees))
	}
}

func (m *Metrics) IncRankingWarning(code string) {
	if m == nil {
		return
	}
	m.rankingWarnings.WithLabelValues(code).Inc()
}

func (m *Metrics) IncCache(result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveJob(jobType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(jobType, status).Inc()
	m.jobsDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}
