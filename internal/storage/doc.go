// Package storage implements the session stores.
//
//   - PgStore keeps sessions in PostgreSQL through the session_* and form_*
//     stored procedures, joining the request transaction when one is bound
//     to the context.
//   - BadgerStore keeps them in an embedded Badger database; entries carry
//     native TTLs.
//   - RedisStore keeps them in Redis, shared by every gateway instance that
//     points at the same server.
//   - memory.Store (subpackage) keeps them in process.
package storage
