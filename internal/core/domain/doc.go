// Package domain defines the core domain models for LedgerGate.
//
// Domain models are pure value objects without IO dependencies. This
// package contains:
//
//   - RunMode: command line, gateway (CGI) and embedded server detection
//   - SessionCookie / Session: the session cookie and its server-side record
//   - FormToken and session token generation and hashing
//   - ProcedureCall: stored procedure calls with plain, array and typed args
//   - Abort: the request-terminating error
//   - Errors: domain-specific error definitions
package domain
