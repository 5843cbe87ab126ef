// Package config defines the LedgerGate configuration shared by the server
// and the command-line tool.
//
// Configuration is loaded by confloader from a YAML file and LEDGERGATE_*
// environment variables on top of Default(), then checked with Verify.
// Sanitize masks secrets before the configuration is logged or printed.
package config
