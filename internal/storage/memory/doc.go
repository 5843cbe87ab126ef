// Package memory provides an in-process session store.
//
// Sessions live in a sharded map together with their form tokens, so
// deleting a session drops its forms too. Nothing survives a restart, so
// it suits tests, the CLI and single-process development servers.
package memory
