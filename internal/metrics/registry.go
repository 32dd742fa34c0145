package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

const (
	ServiceHTTP    = "http"
	ServiceEngine  = "engine"
	ServicePoller  = "poller"
	ServiceIndexer = "indexer"
)

// AllServices is every metric group the CLI exposes.
var AllServices = []string{ServiceHTTP, ServiceEngine, ServicePoller, ServiceIndexer}

// RegisterMetrics registers metrics for the specified services
func RegisterMetrics(services []string, logger *logrus.Logger) {
	// Always register Go and process metrics
	registerIfNotExists(collectors.NewGoCollector(), "go_collector", logger)
	registerIfNotExists(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), "process_collector", logger)

	for _, service := range services {
		switch service {
		case ServiceHTTP:
			registerHTTPMetrics(logger)
		case ServiceEngine:
			registerEngineMetrics(logger)
		case ServicePoller:
			registerPollerMetrics(logger)
		case ServiceIndexer:
			registerIfNotExists(indexerRetriesTotal, "indexer_retries_total", logger)
		default:
			logger.Warnf("Unknown service type for metrics registration: %s", service)
		}
	}
}

// registerIfNotExists registers a collector if it's not already registered
func registerIfNotExists(collector prometheus.Collector, name string, logger *logrus.Logger) {
	if err := prometheus.Register(collector); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegErr) {
			logger.Debugf("%s already registered", name)
		} else {
			logger.Errorf("Failed to register %s: %v", name, err)
		}
	}
}

func registerHTTPMetrics(logger *logrus.Logger) {
	registerIfNotExists(serverRequestsTotal, "server_requests_total", logger)
	registerIfNotExists(serverRequestDuration, "server_request_duration", logger)
	registerIfNotExists(serverInFlight, "server_requests_in_flight", logger)
}

func registerEngineMetrics(logger *logrus.Logger) {
	registerIfNotExists(engineSendsTotal, "engine_sends_total", logger)
	registerIfNotExists(engineSendDuration, "engine_send_duration", logger)
	registerIfNotExists(engineLastSendTimestamp, "engine_last_send_timestamp", logger)
}

func registerPollerMetrics(logger *logrus.Logger) {
	registerIfNotExists(pollerAttempts, "poller_attempts", logger)
	registerIfNotExists(pollerConfirmationDuration, "poller_confirmation_duration", logger)
	registerIfNotExists(pollerTimeoutsTotal, "poller_timeouts_total", logger)
}
