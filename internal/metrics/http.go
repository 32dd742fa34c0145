package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	serverRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "txengine",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Requests served by the metrics endpoint, by route and status code",
		},
		[]string{"route", "code"},
	)

	serverRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "txengine",
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "Time spent serving a scrape or health check",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"route"},
	)

	serverInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "txengine",
			Subsystem: "server",
			Name:      "requests_in_flight",
			Help:      "Requests currently being served",
		},
	)
)

// instrument records every request the metrics server handles.
func instrument(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		serverInFlight.Inc()
		defer serverInFlight.Dec()

		start := time.Now()
		err := next(c)
		if err != nil {
			// let echo render the error so the recorded code is the real one
			c.Error(err)
		}

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		serverRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Response().Status)).Inc()
		serverRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		return nil
	}
}
