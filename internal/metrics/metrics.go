// Package metrics provides Prometheus metrics for the transaction engine.
//
// This package includes:
//   - send counters and latency per network (EngineMetrics, an engine.SendRecorder)
//   - confirmation poll outcomes (PollerMetrics, a status.Recorder)
//   - indexer retry counters (IndexerMetrics, a libhttp.RetryRecorder)
//   - an Echo server exposing /metrics and /healthz
//
// Usage:
//
//	srv := metrics.NewServer(cfg.Metrics, metrics.AllServices, logger)
//	go srv.Run(ctx)
package metrics
