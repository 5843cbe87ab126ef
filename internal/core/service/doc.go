// Package service implements the request lifecycle on top of the domain
// model:
//
//   - Initializer builds a request.Request from an HTTP request or from a
//     query string and environment, opening its database handle.
//   - Gate checks session cookies and form tokens against a SessionStore.
//   - UserLoader loads user preferences and roles.
//   - Procedures invokes stored procedures.
//   - Reporter turns database errors into request aborts.
//
// Storage is reached through the SessionStore interface and pgdb handles,
// so every service can be tested with fakes.
package service
