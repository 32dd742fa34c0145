package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Retried indexer/RPC calls per host
var indexerRetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "txengine",
		Subsystem: "indexer",
		Name:      "retries_total",
		Help:      "Total number of retried indexer calls",
	},
	[]string{"host"},
)

// IndexerMetrics implements libhttp.RetryRecorder
type IndexerMetrics struct{}

func NewIndexerMetrics() *IndexerMetrics {
	return &IndexerMetrics{}
}

func (im *IndexerMetrics) RecordRetry(host string) {
	indexerRetriesTotal.WithLabelValues(host).Inc()
}
