// Package output renders ledgergate-cli results as a table, JSON or YAML.
//
// Tables understand procedure rows (slices of maps, one column per key in
// sorted order), single maps and structs (one FIELD/VALUE line per entry)
// and plain slices. Anything else falls back to JSON.
package output
