// Package confloader loads configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Maps loaded with LoadMap (command-line flags, tests)
//  2. Environment variables with the LEDGERGATE_ prefix
//  3. The YAML configuration file
//  4. Values already present in the target struct (defaults)
//
// Environment names are matched against the koanf keys of the target
// struct, so LEDGERGATE_SESSION_COOKIE_NAME sets session.cookie_name.
//
// Watcher reports changes of the configuration file so that settings which
// can change at runtime (the log level) are reapplied.
package confloader
