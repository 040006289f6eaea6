package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"apradar/internal/model"
)

func TestMetricsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveReport(model.Report{Score: 75, Level: model.LevelCritical})
	m.ObserveReport(model.Report{Score: 80, Level: model.LevelCritical})
	m.ObserveReport(model.Report{Score: 5, Level: model.LevelMinimal})
	m.ObserveAlert(model.Alert{Severity: "critical"})
	m.ObserveDuplicate()
	m.ObserveError("storage")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.scored.WithLabelValues("CRITICAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scored.WithLabelValues("MINIMAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alerts.WithLabelValues("critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.duplicates))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("storage")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.scores))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveReport(model.Report{Score: 10})
	m.ObserveAlert(model.Alert{})
	m.ObserveDuplicate()
	m.ObserveError("notify")
}
