package domain

import (
	"errors"
	"net/http"
)

// Abort terminates the current request. It unwinds to the top-level
// handler, which renders Message as an error page (network run modes) or
// prints it (command line). Abort is never recovered inside a request.
type Abort struct {
	Status  int    // HTTP status for network run modes, 500 unless set
	Message string // User-facing, already localised
	Cause   error
}

// NewAbort creates an Abort with status 500.
func NewAbort(message string, cause error) *Abort {
	return &Abort{
		Status:  http.StatusInternalServerError,
		Message: message,
		Cause:   cause,
	}
}

// Error implements the error interface.
func (a *Abort) Error() string {
	return a.Message
}

// Unwrap returns the cause.
func (a *Abort) Unwrap() error {
	return a.Cause
}

// StatusCode returns the HTTP status, defaulting to 500.
func (a *Abort) StatusCode() int {
	if a.Status == 0 {
		return http.StatusInternalServerError
	}
	return a.Status
}

// AsAbort extracts an Abort from err. Any other non-nil error becomes an
// Abort whose message is the error text.
func AsAbort(err error) *Abort {
	if err == nil {
		return nil
	}
	var a *Abort
	if errors.As(err, &a) {
		return a
	}
	return NewAbort(err.Error(), err)
}
