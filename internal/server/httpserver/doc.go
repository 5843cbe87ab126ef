// Package httpserver is the embedded LedgerGate HTTP server.
//
// The router mounts /health, /ready and /metrics next to the script
// handler and wraps everything in the middleware chain:
//
//	RequestID -> Recover -> Audit -> RateLimit -> Metrics -> handler
package httpserver
