// Package main provides the entry point for ledgergate-cli.
//
// ledgergate-cli calls stored procedures and manages sessions and form
// tokens against the configured database and session store, without a
// running server.
package main
