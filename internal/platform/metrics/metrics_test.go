package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestRegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New()
	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg))
}

func TestObserveRanking(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New()
	require.NoError(t, m.Register(reg))

	m.ObserveRanking("monthly", StatusSuccess, 12, 40*time.Millisecond)
	m.ObserveRanking("monthly", StatusFailure, 0, 10*time.Millisecond)
	m.IncRankingWarning("weight_sum")

	families := gather(t, reg)

	runs := families[MetricRankingRunsTotal]
	require.NotNil(t, runs)
	assert.Len(t, runs.GetMetric(), 2)
	for _, metric := range runs.GetMetric() {
		assert.Equal(t, "monthly", labelValue(metric, "kind"))
		assert.Equal(t, 1.0, metric.GetCounter().GetValue())
	}

	gauge := families[MetricRankingEmployees]
	require.NotNil(t, gauge)
	assert.Equal(t, 12.0, gauge.GetMetric()[0].GetGauge().GetValue())

	warnings := families[MetricRankingWarnings]
	require.NotNil(t, warnings)
	assert.Equal(t, "weight_sum", labelValue(warnings.GetMetric()[0], "code"))
}

func TestObserveHTTPUnmatchedRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New()
	require.NoError(t, m.Register(reg))

	m.ObserveHTTP("GET", "", 404, time.Millisecond)

	families := gather(t, reg)
	reqs := families[MetricHTTPRequestsTotal]
	require.NotNil(t, reqs)
	metric := reqs.GetMetric()[0]
	assert.Equal(t, "unmatched", labelValue(metric, "route"))
	assert.Equal(t, "404", labelValue(metric, "status"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
		m.ObserveRanking("monthly", StatusSuccess, 1, time.Millisecond)
		m.IncRankingWarning("x")
		m.IncCache(CacheHit)
		m.ObserveJob("j", StatusSuccess, time.Millisecond)
	})
}
