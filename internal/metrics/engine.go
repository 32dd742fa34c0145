package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Sends by network and outcome
	engineSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "txengine",
			Subsystem: "engine",
			Name:      "sends_total",
			Help:      "Total number of send calls",
		},
		[]string{"network", "status"}, // success, error
	)

	// Wall time of a send including confirmation
	engineSendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "txengine",
			Subsystem: "engine",
			Name:      "send_duration_seconds",
			Help:      "Time taken to send and confirm a transaction",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"network"},
	)

	engineLastSendTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "txengine",
			Subsystem: "engine",
			Name:      "last_send_timestamp",
			Help:      "Timestamp of the last successful send",
		},
		[]string{"network"},
	)
)

// EngineMetrics implements engine.SendRecorder
type EngineMetrics struct{}

func NewEngineMetrics() *EngineMetrics {
	return &EngineMetrics{}
}

// RecordSend records one send call
func (em *EngineMetrics) RecordSend(network string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}

	engineSendsTotal.WithLabelValues(network, status).Inc()
	engineSendDuration.WithLabelValues(network).Observe(duration.Seconds())
	if success {
		engineLastSendTimestamp.WithLabelValues(network).Set(float64(time.Now().Unix()))
	}
}
