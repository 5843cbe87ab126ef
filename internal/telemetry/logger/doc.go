// Package logger provides structured logging for LedgerGate.
//
// Loggers wrap log/slog with a handler that masks session tokens, cookies
// and credentials, and that adds the request ID and any attributes
// attached with WithAttrs to records logged with the request context. The
// level lives in a slog.LevelVar so a configuration reload can change it.
package logger
