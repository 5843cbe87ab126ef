// Package domain defines the core domain models for LedgerGate.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Codes have the form LG-<AREA>-<NNNN>; the last four digits follow HTTP
// status semantics where one applies.
type DomainError struct {
	Code    string // Error code (e.g., "LG-SESS-4010")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Request Errors (REQ)
// ============================================================================

var (
	// ErrMethodNotAllowed indicates a request method outside HEAD, GET, POST.
	ErrMethodNotAllowed = NewDomainError("LG-REQ-4050", "request method not allowed")

	// ErrMethodMissing indicates a network request without a method.
	ErrMethodMissing = NewDomainError("LG-REQ-4000", "request method not set")

	// ErrInvalidScript indicates a script path that fails validation.
	ErrInvalidScript = NewDomainError("LG-REQ-4001", "invalid script name")

	// ErrMalformedParams indicates the query string or form body could not be parsed.
	ErrMalformedParams = NewDomainError("LG-REQ-4002", "malformed request parameters")

	// ErrUnknownScript indicates no handler is registered for a script.
	ErrUnknownScript = NewDomainError("LG-REQ-4040", "unknown script")

	// ErrUnknownAction indicates a script does not implement the requested action.
	ErrUnknownAction = NewDomainError("LG-REQ-4041", "unknown action")
)

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrSessionInvalid indicates the session cookie did not match the store.
	ErrSessionInvalid = NewDomainError("LG-SESS-4010", "session not valid")

	// ErrSessionExpired indicates the session has expired.
	ErrSessionExpired = NewDomainError("LG-SESS-4011", "session expired")

	// ErrSessionCookieMalformed indicates the cookie value is not id:token:company.
	ErrSessionCookieMalformed = NewDomainError("LG-SESS-4000", "malformed session cookie")

	// ErrSessionNotFound indicates the session does not exist.
	ErrSessionNotFound = NewDomainError("LG-SESS-4040", "session not found")
)

// ============================================================================
// Form Token Errors (FORM)
// ============================================================================

var (
	// ErrFormTokenInvalid indicates an unknown or already consumed form token.
	ErrFormTokenInvalid = NewDomainError("LG-FORM-4010", "form token not valid")

	// ErrFormTokenMissing indicates no form token was submitted.
	ErrFormTokenMissing = NewDomainError("LG-FORM-4000", "form token not provided")
)

// ============================================================================
// Database Errors (DB)
// ============================================================================

var (
	// ErrDatabase indicates a failure reported by the database.
	ErrDatabase = NewDomainError("LG-DB-5000", "database error")

	// ErrDatabaseUnavailable indicates no handle could be opened.
	ErrDatabaseUnavailable = NewDomainError("LG-DB-5030", "database unavailable")

	// ErrInvalidProcedure indicates an invalid procedure, schema, type or ordering.
	ErrInvalidProcedure = NewDomainError("LG-DB-4000", "invalid procedure call")
)

// ============================================================================
// Locale Errors (LOC)
// ============================================================================

var (
	// ErrLocaleNotFound indicates no locale could be resolved for a request.
	ErrLocaleNotFound = NewDomainError("LG-LOC-5000", "locale not available")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("LG-SYS-5000", "internal server error")

	// ErrStorageError indicates a session store failure.
	ErrStorageError = NewDomainError("LG-SYS-5001", "storage error")

	// ErrNotSupported indicates the backend does not implement an operation.
	ErrNotSupported = NewDomainError("LG-SYS-5010", "operation not supported")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("LG-SYS-4290", "too many requests")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("LG-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("LG-ARG-1002", "missing required argument")
)
