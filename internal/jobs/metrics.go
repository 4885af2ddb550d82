// Package jobmetrics holds the Prometheus collectors shared by the asynq
// handlers and the commit-path stock watcher.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	alerts   *prometheus.CounterVec
	lowStock prometheus.Gauge
	purged   prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the collectors on registerer. A nil registerer means the
// process-wide default, registered once.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer != nil {
		return register(promauto.With(registerer))
	}
	defaultOnce.Do(func() {
		defaultMetrics = register(promauto.With(prometheus.DefaultRegisterer))
	})
	return defaultMetrics
}

func register(f promauto.Factory) *Metrics {
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "odyssey",
			Name:      "jobs_total",
			Help:      "Job executions by task type and status.",
		}, []string{"job", "status"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "odyssey",
			Name:      "jobs_failures_total",
			Help:      "Failed job executions by task type.",
		}, []string{"job"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "odyssey",
			Name:      "job_duration_seconds",
			Help:      "Job execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		alerts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "odyssey",
			Name:      "low_stock_alerts_total",
			Help:      "Low stock alerts raised, by source (commit or scan).",
		}, []string{"source"}),
		lowStock: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "odyssey",
			Name:      "low_stock_items",
			Help:      "Products at or below their reorder level at the last scan.",
		}),
		purged: f.NewCounter(prometheus.CounterOpts{
			Namespace: "odyssey",
			Name:      "idempotency_keys_purged_total",
			Help:      "Idempotency keys removed by the cleanup job.",
		}),
	}
}

// Tracker times one job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts a Tracker for job. Safe on a nil receiver.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records the run and hands err back so handlers can `return t.End(err)`.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := statusSuccess
	if err != nil {
		status = statusFailure
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddLowStockAlerts counts alerts raised from source.
func (m *Metrics) AddLowStockAlerts(source string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.alerts.WithLabelValues(source).Add(float64(count))
}

// SetLowStockItems records the size of the latest scan.
func (m *Metrics) SetLowStockItems(count int) {
	if m == nil {
		return
	}
	m.lowStock.Set(float64(count))
}

// AddPurgedKeys counts idempotency keys removed by a cleanup run.
func (m *Metrics) AddPurgedKeys(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.purged.Add(float64(count))
}
