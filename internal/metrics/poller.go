package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Probe attempts until confirmation
	pollerAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "txengine",
			Subsystem: "poller",
			Name:      "attempts",
			Help:      "Number of status probes until a transaction confirmed",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"network"},
	)

	pollerConfirmationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "txengine",
			Subsystem: "poller",
			Name:      "confirmation_duration_seconds",
			Help:      "Time from broadcast to confirmation",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"network"},
	)

	pollerTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "txengine",
			Subsystem: "poller",
			Name:      "timeouts_total",
			Help:      "Total number of confirmation timeouts",
		},
		[]string{"network"},
	)
)

// PollerMetrics implements status.Recorder
type PollerMetrics struct{}

func NewPollerMetrics() *PollerMetrics {
	return &PollerMetrics{}
}

func (pm *PollerMetrics) RecordConfirmation(network string, attempts int, elapsed time.Duration) {
	pollerAttempts.WithLabelValues(network).Observe(float64(attempts))
	pollerConfirmationDuration.WithLabelValues(network).Observe(elapsed.Seconds())
}

func (pm *PollerMetrics) RecordTimeout(network string, attempts int) {
	pollerTimeoutsTotal.WithLabelValues(network).Inc()
	pollerAttempts.WithLabelValues(network).Observe(float64(attempts))
}
