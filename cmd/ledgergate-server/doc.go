// Package main provides the entry point for ledgergate-server.
//
// The server fronts the ledger's stored procedures with the request and
// session layer. It runs in one of two modes:
//
//   - embedded: a long-running HTTP server with /health, /ready and
//     /metrics next to the scripts
//   - gateway: answers the single CGI request described by its
//     environment and exits
//
// Gateway mode is also selected when GATEWAY_INTERFACE is set.
//
// Usage:
//
//	ledgergate-server [flags]
//	ledgergate-server -config /etc/ledgergate/config.yaml
package main
