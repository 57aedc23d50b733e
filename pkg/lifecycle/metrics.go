package lifecycle

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the engine.
type Metrics struct {
	PassesTotal  *prometheus.CounterVec
	PassDuration *prometheus.HistogramVec

	HookDuration      *prometheus.HistogramVec
	HookFailuresTotal *prometheus.CounterVec

	Observers prometheus.Gauge
}

// NewMetrics creates and registers the engine metrics. Registration runs
// once per process behind sync.Once, so every Engine shares one collector
// set and repeated construction never panics the default registerer.
//
// Metrics:
//   - lifecycle_passes_total{op, outcome} - start/stop passes by outcome
//   - lifecycle_pass_duration_seconds{op} - full pass durations
//   - lifecycle_hook_duration_seconds{phase, group} - individual hook durations
//   - lifecycle_hook_failures_total{phase, group} - failed hook invocations
//   - lifecycle_observers - observers seen by the most recent pass
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			PassesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "lifecycle_passes_total",
					Help: "Total number of lifecycle passes",
				},
				[]string{"op", "outcome"}, // op: "start"/"stop", outcome: "ok"/"error"
			),

			PassDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "lifecycle_pass_duration_seconds",
					Help:    "Duration of full lifecycle passes in seconds",
					Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
				},
				[]string{"op"},
			),

			HookDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "lifecycle_hook_duration_seconds",
					Help:    "Duration of individual observer hook invocations in seconds",
					Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
				},
				[]string{"phase", "group"},
			),

			HookFailuresTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "lifecycle_hook_failures_total",
					Help: "Total number of failed observer hook invocations",
				},
				[]string{"phase", "group"},
			),

			Observers: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "lifecycle_observers",
					Help: "Number of registered observers seen by the most recent pass",
				},
			),
		}
	})

	return globalMetrics
}

// RecordPass records a completed pass with its outcome and duration.
func (m *Metrics) RecordPass(op string, ok bool, seconds float64) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.PassesTotal.WithLabelValues(op, outcome).Inc()
	m.PassDuration.WithLabelValues(op).Observe(seconds)
}

// RecordHook records one hook invocation.
func (m *Metrics) RecordHook(phase, group string, seconds float64) {
	m.HookDuration.WithLabelValues(phase, group).Observe(seconds)
}

// RecordHookFailure records one failed hook invocation.
func (m *Metrics) RecordHookFailure(phase, group string) {
	m.HookFailuresTotal.WithLabelValues(phase, group).Inc()
}

// SetObservers updates the observer count gauge.
func (m *Metrics) SetObservers(n int) {
	m.Observers.Set(float64(n))
}
