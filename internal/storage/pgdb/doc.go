// Package pgdb is the PostgreSQL layer: a pgxpool-backed connection pool,
// the per-request Handle (a transaction), the stored-procedure query
// builder and SQLSTATE extraction.
package pgdb
