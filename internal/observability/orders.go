package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type orderMetrics struct {
	commits  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	retries  *prometheus.CounterVec
}

func newOrderMetrics(factory promauto.Factory) orderMetrics {
	return orderMetrics{
		commits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "commits_total",
			Help:      "Jumlah operasi order berdasarkan operasi dan hasil.",
		}, []string{"op", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "commit_duration_seconds",
			Help:      "Durasi operasi order termasuk percobaan ulang.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"op"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "commit_retries_total",
			Help:      "Transaksi order yang diulang karena bentrok kunci atau serialisasi.",
		}, []string{"op"}),
	}
}

// ObserveCommit mencatat hasil satu operasi order (commit, receive, cancel).
func (m *Metrics) ObserveCommit(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.orders.commits.WithLabelValues(op, outcome).Inc()
	m.orders.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveRetry mencatat satu percobaan ulang transaksi order.
func (m *Metrics) ObserveRetry(op string) {
	if m == nil {
		return
	}
	m.orders.retries.WithLabelValues(op).Inc()
}
