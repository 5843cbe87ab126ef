// Package command defines the ledgergate-cli commands with urfave/cli/v2.
//
// Commands run in command-line mode: requests are initialized from a query
// string and the process environment, session and form checks are skipped,
// and an abort is printed as a plain message with exit status 1.
//
//   - root.go: the application, global flags and output helpers
//   - runtime.go: lazily opened configuration, database and session store
//   - call.go: call and params
//   - form.go: form open|check|close against the session store
//   - session.go: session create|check|delete
//   - config.go: config show and version
package command
