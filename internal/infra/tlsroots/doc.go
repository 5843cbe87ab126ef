// Package tlsroots builds TLS configurations for LedgerGate.
//
//   - roots.go: trusted roots for the PostgreSQL client connection
//     (system pool plus an optional CA bundle)
//   - keypair.go: the embedded server's certificate, reloaded when the
//     files change on disk
package tlsroots
