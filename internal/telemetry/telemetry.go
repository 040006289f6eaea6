package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"apradar/internal/model"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	scored     *prometheus.CounterVec
	alerts     *prometheus.CounterVec
	scores     prometheus.Histogram
	duplicates prometheus.Counter
	errors     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		scored: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "apradar_observations_scored_total",
			Help: "Observations scored, by resulting risk level.",
		}, []string{"level"}),
		alerts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "apradar_alerts_total",
			Help: "Alerts raised, by severity.",
		}, []string{"severity"}),
		scores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "apradar_risk_score",
			Help:    "Distribution of aggregate risk scores.",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		duplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "apradar_observations_duplicate_total",
			Help: "Observations dropped as duplicates.",
		}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "apradar_pipeline_errors_total",
			Help: "Pipeline side-effect failures, by stage.",
		}, []string{"stage"}),
	}
}

func (m *Metrics) ObserveReport(r model.Report) {
	if m == nil {
		return
	}
	m.scored.WithLabelValues(string(r.Level)).Inc()
	m.scores.Observe(float64(r.Score))
}

func (m *Metrics) ObserveAlert(a model.Alert) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(a.Severity).Inc()
}

func (m *Metrics) ObserveDuplicate() {
	if m == nil {
		return
	}
	m.duplicates.Inc()
}

// ObserveError counts a failed side effect such as "storage" or "notify".
func (m *Metrics) ObserveError(stage string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(stage).Inc()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if logger != nil {
		logger.Info("telemetry listener enabled", "addr", addr)
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
