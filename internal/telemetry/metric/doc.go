// Package metric defines LedgerGate's Prometheus metrics.
//
//   - prometheus.go: request, session, form token, procedure and database
//     error metrics, plus the /metrics handler
//   - collector.go: a collector reporting connection pool statistics
//
// A nil *Metrics is valid and records nothing.
package metric
