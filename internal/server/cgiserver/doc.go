// Package cgiserver serves one request per process under a CGI gateway.
//
// The web server starts the binary with the request in its environment
// and body on stdin; the response goes to stdout. The handler chain is the
// same as the embedded server's, minus rate limiting and metrics, which
// have no meaning for a single-request process.
package cgiserver
