// Package handler serves LedgerGate scripts over HTTP.
//
// Every request to /{script} is initialized into a request.Request, checked
// against the session gate when the script requires it, dispatched to the
// script's action and finished (commit or rollback) before the response is
// written. Failures are rendered as an error page, or as JSON when the
// client accepts application/json.
//
// Built-in scripts:
//
//	form.pl       open, check and close form tokens
//	procedure.pl  call a stored procedure
//	session.pl    show or end the current session
package handler
