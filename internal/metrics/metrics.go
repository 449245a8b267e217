package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/showring/notify/internal/capture"
	"github.com/showring/notify/internal/domain"
	"github.com/showring/notify/internal/worker"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	Delivered       *prometheus.CounterVec
	Failed          *prometheus.CounterVec
	DeadLettered    *prometheus.CounterVec
	RateLimited     *prometheus.CounterVec
	DispatchLatency *prometheus.HistogramVec
	RetryBatchDue   prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Total number of notifications acknowledged by the push gateway.",
		}, []string{"category"}),

		Failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Total number of failed delivery attempts (retry-eligible).",
		}, []string{"category"}),

		DeadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_dead_lettered_total",
			Help: "Total number of deliveries quarantined after exhausting retries.",
		}, []string{"category"}),

		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Total number of producer requests rejected by a rate limiter.",
		}, []string{"surface"}),

		DispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatch_seconds",
			Help:    "Latency of successful push gateway calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"category"}),

		RetryBatchDue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "retry_batch_due",
			Help: "Number of due queue items selected by the last processor run.",
		}),
	}

	reg.MustRegister(
		m.Delivered,
		m.Failed,
		m.DeadLettered,
		m.RateLimited,
		m.DispatchLatency,
		m.RetryBatchDue,
	)

	return m
}

// CaptureHooks returns the callbacks expected by capture.MetricHooks.
// Centralises the prometheus observation calls so capture stays metrics-agnostic.
func (m *Metrics) CaptureHooks() capture.MetricHooks {
	return capture.MetricHooks{
		OnDelivered:   m.onDelivered,
		OnFailed:      m.onFailed,
		OnRateLimited: func(surface string) { m.RateLimited.WithLabelValues(surface).Inc() },
	}
}

// WorkerHooks returns the callbacks expected by worker.MetricHooks.
func (m *Metrics) WorkerHooks() worker.MetricHooks {
	return worker.MetricHooks{
		OnDelivered:    m.onDelivered,
		OnFailed:       m.onFailed,
		OnDeadLettered: func(c domain.Category) { m.DeadLettered.WithLabelValues(string(c)).Inc() },
		OnBatch:        func(due int) { m.RetryBatchDue.Set(float64(due)) },
	}
}

func (m *Metrics) onDelivered(c domain.Category, latency time.Duration) {
	m.Delivered.WithLabelValues(string(c)).Inc()
	m.DispatchLatency.WithLabelValues(string(c)).Observe(latency.Seconds())
}

func (m *Metrics) onFailed(c domain.Category) {
	m.Failed.WithLabelValues(string(c)).Inc()
}
